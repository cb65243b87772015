package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the audio bridge.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CallbackServer receives NOTIFY deliveries from all players on one local
// HTTP listener and routes them to the owning device's Eventing transport.
//
// Paths have the form /notify/{device_id}/{service}.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type CallbackServer struct {
	server *http.Server
	logger Logger

	mu      sync.Mutex
	devices map[string]*Eventing
}

// NewCallbackServer creates a CallbackServer listening on addr
// (e.g. ":8089").
func NewCallbackServer(addr string, logger Logger) (*CallbackServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	s := &CallbackServer{
		logger:  logger,
		devices: make(map[string]*Eventing),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Register routes NOTIFY deliveries for a device to its eventing transport.
func (s *CallbackServer) Register(deviceID string, eventing *Eventing) {
	s.mu.Lock()
	s.devices[deviceID] = eventing
	s.mu.Unlock()
}

// Unregister removes a device's route.
func (s *CallbackServer) Unregister(deviceID string) {
	s.mu.Lock()
	delete(s.devices, deviceID)
	s.mu.Unlock()
}

// Start begins serving in a background goroutine.
func (s *CallbackServer) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Error("event callback server failed", "error", err.Error())
			}
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *CallbackServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP handles one NOTIFY delivery.
func (s *CallbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "notify" {
		http.NotFound(w, r)
		return
	}
	deviceID, service := parts[1], parts[2]

	s.mu.Lock()
	eventing, ok := s.devices[deviceID]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}

	if err := eventing.HandleNotify(service, body); err != nil {
		if s.logger != nil {
			s.logger.Debug("dropped malformed notify",
				"device_id", deviceID, "service", service, "error", err.Error())
		}
		http.Error(w, "bad event document", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}
