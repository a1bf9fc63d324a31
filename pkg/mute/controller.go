// Package mute owns the microphone mute state machine: one master device
// drives the state, a set of slave devices is kept in sync with it.
package mute

import (
	"log/slog"
	"sync"
)

// Gateway is the slice of the audio layer the controller needs.
type Gateway interface {
	GetMute(id string) (bool, error)
	SetMute(id string, mute bool) error
}

// FeedbackPlayer is notified of state transitions and failures so the user
// hears what happened.
type FeedbackPlayer interface {
	Transition(muted bool)
	Failure()
}

// Controller applies mute commands to the master device and fans the
// resulting state out to the sync devices. The device is the source of
// truth: every command re-reads the hardware state first, so changes made
// outside the application are picked up instead of fought.
type Controller struct {
	gw       Gateway
	feedback FeedbackPlayer

	mu       sync.Mutex
	masterID string
	syncIDs  []string
	onChange func(muted bool)
}

func NewController(gw Gateway, feedback FeedbackPlayer) *Controller {
	return &Controller{gw: gw, feedback: feedback}
}

// SetMaster changes which device drives the state. Empty means the OS
// default capture device.
func (c *Controller) SetMaster(id string) {
	c.mu.Lock()
	c.masterID = id
	c.mu.Unlock()
}

// Master returns the current master device id.
func (c *Controller) Master() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masterID
}

// SetSyncIDs replaces the set of devices mirrored to the master's state.
func (c *Controller) SetSyncIDs(ids []string) {
	c.mu.Lock()
	c.syncIDs = append([]string(nil), ids...)
	c.mu.Unlock()
}

// OnChange registers a callback invoked after a state change has been
// applied to the master and fanned out.
func (c *Controller) OnChange(fn func(muted bool)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Muted reads the master device's current mute state.
func (c *Controller) Muted() (bool, error) {
	c.mu.Lock()
	id := c.masterID
	c.mu.Unlock()
	return c.gw.GetMute(id)
}

// Toggle flips the master's mute state.
func (c *Controller) Toggle() {
	c.mu.Lock()
	id := c.masterID
	c.mu.Unlock()

	cur, err := c.gw.GetMute(id)
	if err != nil {
		slog.Warn("read mute state failed", "device", id, "error", err)
		c.feedback.Failure()
		return
	}
	c.apply(!cur, cur)
}

// SetMute drives the master to the given state. A command that matches the
// current state still re-syncs the slave devices but stays silent.
func (c *Controller) SetMute(muted bool) {
	c.mu.Lock()
	id := c.masterID
	c.mu.Unlock()

	cur, err := c.gw.GetMute(id)
	if err != nil {
		slog.Warn("read mute state failed", "device", id, "error", err)
		c.feedback.Failure()
		return
	}
	c.apply(muted, cur)
}

func (c *Controller) apply(target, current bool) {
	c.mu.Lock()
	id := c.masterID
	syncIDs := append([]string(nil), c.syncIDs...)
	onChange := c.onChange
	c.mu.Unlock()

	changed := target != current
	if changed {
		if err := c.gw.SetMute(id, target); err != nil {
			slog.Warn("set mute state failed", "device", id, "muted", target, "error", err)
			c.feedback.Failure()
			return
		}
		slog.Info("mute state changed", "device", id, "muted", target)
		c.feedback.Transition(target)
	}

	// Slaves follow best-effort: an unplugged sync device must never
	// block the master.
	for _, sid := range syncIDs {
		if sid == "" || sid == id {
			continue
		}
		if err := c.gw.SetMute(sid, target); err != nil {
			slog.Debug("sync device skipped", "device", sid, "error", err)
		}
	}

	if changed && onChange != nil {
		onChange(target)
	}
}
