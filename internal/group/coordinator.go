package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-devices/internal/state"
)

// Transport sends group-related commands to a device by address.
// Implemented by the audio bridge's device client.
type Transport interface {
	SetVolume(ctx context.Context, host string, volume int) error
	SetMute(ctx context.Context, host string, muted bool) error
	Join(ctx context.Context, host, masterAddress string) error
	Leave(ctx context.Context, host string) error
	Ungroup(ctx context.Context, host string) error
	Kick(ctx context.Context, host, slaveAddress string) error
}

// StateSource provides read access to the canonical device state.
// Implemented by state.Reconciler.
type StateSource interface {
	Snapshot() state.DeviceState
}

// Refresher triggers an immediate topology refresh.
// Implemented by poll.Poller.
type Refresher interface {
	RefreshNow()
}

// Logger defines the logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Options configures a Coordinator.
type Options struct {
	// SelfHost is this device's own address. Required.
	SelfHost string

	// Transport sends commands. Required.
	Transport Transport

	// Source provides the canonical state. Required.
	Source StateSource

	// Refresher triggers topology refreshes. May be nil.
	Refresher Refresher

	// Logger may be nil.
	Logger Logger
}

// Coordinator fans group commands out to every group member.
//
// All operations are idempotent: devices re-announce their state on every
// poll, so repeating a command with the same value must be safe. The
// coordinator tracks no "already applied" state beyond the canonical
// DeviceState's current fields.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Coordinator struct {
	opts Options
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.SelfHost == "" {
		return nil, fmt.Errorf("self host is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("state source is required")
	}
	return &Coordinator{opts: opts}, nil
}

// SetGroupVolume applies a volume to the whole group.
//
// As master: the volume is sent to every slave and to self; per-target
// failures are logged independently and do not abort the remaining sends.
// As slave or standalone: the volume is applied to self only — a slave
// cannot command others, and this is expected remote-control usage, not a
// fault.
func (c *Coordinator) SetGroupVolume(ctx context.Context, volume int) error {
	return c.fanOut(ctx, "volume", func(host string) error {
		return c.opts.Transport.SetVolume(ctx, host, volume)
	})
}

// SetGroupMute applies a mute state to the whole group, with the same
// fan-out semantics as SetGroupVolume.
func (c *Coordinator) SetGroupMute(ctx context.Context, muted bool) error {
	return c.fanOut(ctx, "mute", func(host string) error {
		return c.opts.Transport.SetMute(ctx, host, muted)
	})
}

// Join makes this device join the group mastered at masterAddress, then
// triggers a topology refresh.
func (c *Coordinator) Join(ctx context.Context, masterAddress string) error {
	err := c.opts.Transport.Join(ctx, c.opts.SelfHost, masterAddress)
	c.refresh()
	return err
}

// Leave removes this device from its current group, then triggers a
// topology refresh.
func (c *Coordinator) Leave(ctx context.Context) error {
	err := c.opts.Transport.Leave(ctx, c.opts.SelfHost)
	c.refresh()
	return err
}

// Ungroup dissolves the group this device masters, then triggers a
// topology refresh.
func (c *Coordinator) Ungroup(ctx context.Context) error {
	err := c.opts.Transport.Ungroup(ctx, c.opts.SelfHost)
	c.refresh()
	return err
}

// Kick removes a named slave from the group, then triggers a topology
// refresh.
func (c *Coordinator) Kick(ctx context.Context, slaveAddress string) error {
	err := c.opts.Transport.Kick(ctx, c.opts.SelfHost, slaveAddress)
	c.refresh()
	return err
}

// fanOut sends one command to every relevant group member based on the
// current role.
func (c *Coordinator) fanOut(ctx context.Context, kind string, send func(host string) error) error {
	snap := c.opts.Source.Snapshot()

	if snap.Role != state.RoleMaster {
		c.logDebug("group command applied to self only",
			"kind", kind, "role", string(snap.Role))
		return send(c.opts.SelfHost)
	}

	var errs []error
	for _, slave := range snap.SlaveAddresses {
		if err := send(slave); err != nil {
			c.logWarn("group command failed for slave",
				"kind", kind, "slave", slave, "error", err.Error())
			errs = append(errs, fmt.Errorf("slave %s: %w", slave, err))
		}
	}

	if err := send(c.opts.SelfHost); err != nil {
		c.logWarn("group command failed for self", "kind", kind, "error", err.Error())
		errs = append(errs, fmt.Errorf("self: %w", err))
	}

	return errors.Join(errs...)
}

// refresh kicks the slow cadence so topology is re-derived from the next
// fetched payload rather than assumed.
func (c *Coordinator) refresh() {
	if c.opts.Refresher != nil {
		c.opts.Refresher.RefreshNow()
	}
}

func (c *Coordinator) logDebug(msg string, keysAndValues ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Debug(msg, keysAndValues...)
	}
}

func (c *Coordinator) logWarn(msg string, keysAndValues ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Warn(msg, keysAndValues...)
	}
}
