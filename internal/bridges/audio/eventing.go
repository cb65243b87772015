package audio

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/state"
)

// Event service names. The rendering service carries volume and mute, the
// transport service carries playback state.
const (
	ServiceRendering = "RenderingControl"
	ServiceTransport = "AVTransport"
)

// defaultSubscriptionTimeout is requested from the device; the device may
// answer with a shorter grant.
const defaultSubscriptionTimeout = 300 * time.Second

// EventHandler receives decoded event variables.
// Implemented by push.Listener.
type EventHandler interface {
	OnEvent(variable, value, service string)
}

// EventingOptions configures an Eventing transport.
type EventingOptions struct {
	// Host is the device address. Required.
	Host string

	// CallbackURL is the base URL the device delivers NOTIFY requests to,
	// e.g. "http://192.168.1.10:8089/notify/speaker-kitchen". Required.
	CallbackURL string

	// RequestTimeout is the per-request deadline. Default: 5s.
	RequestTimeout time.Duration
}

// Eventing is the device-side push transport: it opens and renews
// subscriptions with the UPnP SUBSCRIBE verb and parses the NOTIFY bodies
// the device delivers to the callback listener.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Eventing struct {
	opts   EventingOptions
	client *http.Client

	mu      sync.Mutex
	sids    map[string]string // service → subscription identifier
	handler EventHandler
}

// NewEventing creates an Eventing transport.
func NewEventing(opts EventingOptions) (*Eventing, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.CallbackURL == "" {
		return nil, fmt.Errorf("callback url is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	return &Eventing{
		opts:   opts,
		client: &http.Client{Timeout: opts.RequestTimeout},
		sids:   make(map[string]string),
	}, nil
}

// SetHandler installs the receiver for decoded NOTIFY variables.
func (e *Eventing) SetHandler(handler EventHandler) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

// Subscribe opens a subscription to the named service and returns its
// expiry.
func (e *Eventing) Subscribe(ctx context.Context, service string) (time.Time, error) {
	req, err := e.newSubscribeRequest(ctx, service)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("CALLBACK", fmt.Sprintf("<%s/%s>", e.opts.CallbackURL, service))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", formatTimeout(defaultSubscriptionTimeout))

	return e.doSubscribe(req, service)
}

// Renew extends an existing subscription and returns the new expiry.
func (e *Eventing) Renew(ctx context.Context, service string) (time.Time, error) {
	e.mu.Lock()
	sid, ok := e.sids[service]
	e.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotSubscribed, service)
	}

	req, err := e.newSubscribeRequest(ctx, service)
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("SID", sid)
	req.Header.Set("TIMEOUT", formatTimeout(defaultSubscriptionTimeout))

	return e.doSubscribe(req, service)
}

// HandleNotify parses one NOTIFY body for the named service and forwards
// each contained variable to the handler.
func (e *Eventing) HandleNotify(service string, body []byte) error {
	variables, err := parseNotifyBody(body)
	if err != nil {
		return fmt.Errorf("notify for %s: %w", service, err)
	}

	e.mu.Lock()
	handler := e.handler
	e.mu.Unlock()
	if handler == nil {
		return nil
	}

	for variable, value := range variables {
		handler.OnEvent(variable, value, service)
	}
	return nil
}

func (e *Eventing) newSubscribeRequest(ctx context.Context, service string) (*http.Request, error) {
	u := fmt.Sprintf("http://%s/upnp/event/%s", e.opts.Host, service)
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", u, nil)
	if err != nil {
		return nil, fmt.Errorf("building subscribe request: %w", err)
	}
	return req, nil
}

func (e *Eventing) doSubscribe(req *http.Request, service string) (time.Time, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("subscribe %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("subscribe %s: device answered %d", service, resp.StatusCode)
	}

	if sid := resp.Header.Get("SID"); sid != "" {
		e.mu.Lock()
		e.sids[service] = sid
		e.mu.Unlock()
	}

	granted := parseTimeout(resp.Header.Get("TIMEOUT"))
	return time.Now().Add(granted), nil
}

// formatTimeout renders a duration in the eventing header form "Second-300".
func formatTimeout(d time.Duration) string {
	return fmt.Sprintf("Second-%d", int(d.Seconds()))
}

// parseTimeout parses a "Second-300" header. Missing or malformed headers
// (including "Second-infinite") fall back to the default.
func parseTimeout(header string) time.Duration {
	const prefix = "Second-"
	if !strings.HasPrefix(header, prefix) {
		return defaultSubscriptionTimeout
	}
	secs, err := strconv.Atoi(strings.TrimPrefix(header, prefix))
	if err != nil || secs <= 0 {
		return defaultSubscriptionTimeout
	}
	return time.Duration(secs) * time.Second
}

// propertySet is the outer NOTIFY envelope. The LastChange property carries
// the actual event document as escaped XML.
type propertySet struct {
	Properties []struct {
		LastChange string `xml:"LastChange"`
	} `xml:"property"`
}

// parseNotifyBody extracts variable→value pairs from a NOTIFY body. Each
// element under InstanceID is one variable with its value in the "val"
// attribute.
func parseNotifyBody(body []byte) (map[string]string, error) {
	var envelope propertySet
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse propertyset: %w", err)
	}

	variables := make(map[string]string)
	for _, prop := range envelope.Properties {
		if prop.LastChange == "" {
			continue
		}
		if err := collectEventVariables(prop.LastChange, variables); err != nil {
			return nil, err
		}
	}
	return variables, nil
}

func collectEventVariables(lastChange string, variables map[string]string) error {
	decoder := xml.NewDecoder(strings.NewReader(lastChange))
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("parse event document: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local == "Event" || start.Name.Local == "InstanceID" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "val" {
				variables[start.Name.Local] = attr.Value
			}
		}
	}
}

// DecodeEvent translates a pushed (service, variable, value) triple into
// partial state fields. It is the push.DecodeFunc for this protocol; the
// push channel covers exactly volume, mute and transport state.
func DecodeEvent(service, variable, value string) (state.PushedFields, bool) {
	switch {
	case service == ServiceRendering && variable == "Volume":
		v, err := strconv.Atoi(value)
		if err != nil {
			return state.PushedFields{}, false
		}
		return state.PushedFields{Volume: &v}, true

	case service == ServiceRendering && variable == "Mute":
		muted := value == "1" || strings.EqualFold(value, "true")
		return state.PushedFields{Muted: &muted}, true

	case service == ServiceTransport && variable == "TransportState":
		transport, ok := map[string]string{
			"PLAYING":         "play",
			"PAUSED_PLAYBACK": "pause",
			"STOPPED":         "stop",
			"TRANSITIONING":   "loading",
		}[value]
		if !ok {
			return state.PushedFields{}, false
		}
		return state.PushedFields{Transport: &transport}, true
	}

	return state.PushedFields{}, false
}
