// Package app wires the subsystems together: hotkeys drive the mute
// controller, the AFK timer and meter worker run off the same loop, and
// the tray surface observes state changes through callbacks.
//
// All audio work happens on the Run goroutine, which is locked to its OS
// thread for COM. Calls from other goroutines go through a task queue.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"time"

	"micmute/assets"
	"micmute/pkg/afk"
	"micmute/pkg/config"
	"micmute/pkg/feedback"
	"micmute/pkg/hook"
	"micmute/pkg/meter"
	"micmute/pkg/mute"
	"micmute/pkg/wasapi"
)

const dispatchInterval = 10 * time.Millisecond

// AudioGateway is the audio layer the app drives.
type AudioGateway interface {
	EnumerateCaptureDevices() ([]wasapi.Device, error)
	DefaultCaptureDevice() (wasapi.Device, error)
	SetDefaultCaptureDevice(id string) error
	GetMute(id string) (bool, error)
	SetMute(id string, mute bool) error
	Close() error
}

// KeyboardHook is an installed global hook.
type KeyboardHook interface {
	Uninstall() error
}

// DeviceWatch delivers default-capture-device change notifications.
type DeviceWatch interface {
	Changes() <-chan string
	Close() error
}

// Observers receives state-change notifications on the app goroutine;
// callbacks must not block.
type Observers struct {
	OnMuteChanged          func(muted bool)
	OnVoiceActivity        func(active bool)
	OnKeyCaptured          func(target string, vk uint32, name string)
	OnDefaultDeviceChanged func(dev wasapi.Device)
	OnConfigChanged        func(cfg *config.Config)
}

// Options supplies the platform integrations. Zero fields get the real
// Windows implementations; tests inject fakes.
type Options struct {
	OpenGateway   func() (AudioGateway, error)
	InstallHook   func(*hook.Engine) (KeyboardHook, error)
	WatchDevices  func() (DeviceWatch, error)
	OpenMeter     func(deviceID string) (meter.Source, error)
	Idle          func() (time.Duration, error)
	ConfigChanges <-chan struct{}
}

func (o *Options) fillDefaults() {
	if o.OpenGateway == nil {
		o.OpenGateway = func() (AudioGateway, error) { return wasapi.NewGateway() }
	}
	if o.InstallHook == nil {
		o.InstallHook = func(e *hook.Engine) (KeyboardHook, error) { return hook.Install(e) }
	}
	if o.WatchDevices == nil {
		o.WatchDevices = func() (DeviceWatch, error) { return wasapi.WatchDefaultDevice() }
	}
	if o.OpenMeter == nil {
		o.OpenMeter = func(id string) (meter.Source, error) { return wasapi.OpenMeter(id) }
	}
	if o.Idle == nil {
		o.Idle = afk.Idle
	}
}

// App is the application core.
type App struct {
	store *config.Store
	obs   Observers
	opts  Options

	engine     *hook.Engine
	dispatcher *feedback.Dispatcher

	// Owned by the Run goroutine.
	cfg          *config.Config
	gw           AudioGateway
	controller   *mute.Controller
	hk           KeyboardHook
	devWatch     DeviceWatch
	muted        bool
	recordTarget string
	afkTimer     *time.Timer
	worker       *meter.Worker
	dropped      uint64

	tasks chan func()
}

func New(cfg *config.Config, store *config.Store, obs Observers, opts Options) *App {
	opts.fillDefaults()
	a := &App{
		store: store,
		obs:   obs,
		opts:  opts,
		cfg:   cfg,
		tasks: make(chan func(), 32),
	}
	a.engine = hook.NewEngine(bindingsFrom(cfg.Hotkey))
	a.dispatcher = feedback.NewDispatcher(feedback.SettingsFrom(cfg), feedback.Options{
		ExternalDir: config.SoundDir(),
		Embedded:    assets.Sound,
		OnHeal:      a.healSound,
	})
	return a
}

// Run owns the event loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	gw, err := a.opts.OpenGateway()
	if err != nil {
		return fmt.Errorf("app: open audio gateway: %w", err)
	}
	a.gw = gw

	a.controller = mute.NewController(gw, a.dispatcher)
	a.controller.SetMaster(a.cfg.DeviceID)
	a.controller.SetSyncIDs(a.cfg.SyncIDs)
	a.controller.OnChange(a.muteChanged)

	a.adoptDevice()
	if muted, err := a.controller.Muted(); err == nil {
		a.muted = muted
		a.notifyMute(muted)
	}

	if hk, err := a.opts.InstallHook(a.engine); err != nil {
		slog.Warn("hotkeys unavailable", "error", err)
	} else {
		a.hk = hk
	}

	if dw, err := a.opts.WatchDevices(); err != nil {
		slog.Debug("device notifications unavailable", "error", err)
	} else {
		a.devWatch = dw
	}

	a.afkTimer = time.NewTimer(time.Hour)
	a.stopAFKTimer()
	a.rescheduleAFK()
	a.reconcileMeter()

	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	var devChanges <-chan string
	if a.devWatch != nil {
		devChanges = a.devWatch.Changes()
	}

	for {
		var activity <-chan bool
		var workerDone <-chan struct{}
		if a.worker != nil {
			activity = a.worker.Activity()
			workerDone = a.worker.Done()
		}

		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case <-ticker.C:
			a.drainHotkeys()
		case vk := <-a.engine.Recorded():
			a.finishRecording(vk)
		case <-a.afkTimer.C:
			a.evaluateAFK()
		case v := <-activity:
			a.notifyActivity(v)
		case <-workerDone:
			a.collectWorker()
		case id := <-devChanges:
			a.defaultDeviceChanged(id)
		case <-a.opts.ConfigChanges:
			a.reloadConfig()
		case fn := <-a.tasks:
			fn()
		}
	}
}

func (a *App) shutdown() {
	if a.worker != nil {
		a.worker.Stop()
		a.worker = nil
	}
	if a.hk != nil {
		if err := a.hk.Uninstall(); err != nil {
			slog.Warn("hook uninstall failed", "error", err)
		}
	}
	if a.devWatch != nil {
		_ = a.devWatch.Close()
	}
	if err := a.store.Flush(); err != nil {
		slog.Warn("config flush failed", "error", err)
	}
	if err := a.gw.Close(); err != nil {
		slog.Warn("gateway close failed", "error", err)
	}
}

// drainHotkeys processes everything the hook thread queued since the last
// tick, preserving press order.
func (a *App) drainHotkeys() {
	for {
		select {
		case act := <-a.engine.Actions():
			switch act {
			case hook.ActionToggle:
				a.controller.Toggle()
			case hook.ActionMute:
				a.controller.SetMute(true)
			case hook.ActionUnmute:
				a.controller.SetMute(false)
			}
		default:
			if d := a.engine.Dropped(); d > a.dropped {
				slog.Warn("hotkey actions dropped", "count", d-a.dropped)
				a.dropped = d
			}
			return
		}
	}
}

// muteChanged runs on the loop goroutine via the controller callback.
func (a *App) muteChanged(muted bool) {
	a.muted = muted
	a.reconcileMeter()
	a.notifyMute(muted)
}

func (a *App) notifyMute(muted bool) {
	if a.obs.OnMuteChanged != nil {
		a.obs.OnMuteChanged(muted)
	}
}

func (a *App) notifyActivity(active bool) {
	if a.obs.OnVoiceActivity != nil {
		a.obs.OnVoiceActivity(active)
	}
}

// adoptDevice falls back to the system default when the pinned device no
// longer resolves, and persists the fallback.
func (a *App) adoptDevice() {
	if a.cfg.DeviceID == "" {
		return
	}
	if _, err := a.gw.GetMute(a.cfg.DeviceID); err != nil {
		slog.Warn("configured device unavailable, following system default",
			"device", a.cfg.DeviceID, "error", err)
		a.cfg.DeviceID = ""
		a.controller.SetMaster("")
		a.store.Save(a.cfg)
	}
}

func (a *App) defaultDeviceChanged(id string) {
	if a.cfg.DeviceID != "" {
		return // pinned to a specific device, default changes are noise
	}
	slog.Info("default capture device changed", "device", id)
	if a.obs.OnDefaultDeviceChanged != nil {
		if dev, err := a.gw.DefaultCaptureDevice(); err == nil {
			a.obs.OnDefaultDeviceChanged(dev)
		}
	}
	a.refreshMuted()
	a.restartMeter()
}

func (a *App) refreshMuted() {
	muted, err := a.controller.Muted()
	if err != nil || muted == a.muted {
		return
	}
	a.muted = muted
	a.reconcileMeter()
	a.notifyMute(muted)
}

// AFK timer

func (a *App) stopAFKTimer() {
	if !a.afkTimer.Stop() {
		select {
		case <-a.afkTimer.C:
		default:
		}
	}
}

func (a *App) rescheduleAFK() {
	a.stopAFKTimer()
	if a.cfg.AFK.Enabled {
		a.evaluateAFK()
	}
}

func (a *App) evaluateAFK() {
	idle, err := a.opts.Idle()
	if err != nil {
		// Treat an unreadable idle clock as activity and retry soon.
		slog.Debug("idle probe failed", "error", err)
		a.afkTimer.Reset(time.Second)
		return
	}
	d := afk.Evaluate(a.cfg.AFK.Enabled, time.Duration(a.cfg.AFK.Timeout)*time.Second, idle)
	if d.Stop {
		return
	}
	if d.Mute {
		a.controller.SetMute(true)
	}
	a.afkTimer.Reset(d.Next)
}

// Meter lifecycle

func (a *App) meterWanted() bool {
	return a.cfg.Overlay.Enabled && a.cfg.Overlay.ShowVU && !a.muted
}

func (a *App) meterDevice() string {
	if a.cfg.Overlay.DeviceID != "" {
		return a.cfg.Overlay.DeviceID
	}
	return a.cfg.DeviceID
}

func (a *App) reconcileMeter() {
	want := a.meterWanted()
	if !want && a.worker != nil {
		a.worker.Stop()
		a.worker = nil
		a.notifyActivity(false)
	}
	if want && a.worker == nil {
		id := a.meterDevice()
		sens := float64(a.cfg.Overlay.Sensitivity) / 100
		a.worker = meter.NewWorker(func() (meter.Source, error) { return a.opts.OpenMeter(id) }, sens)
		a.worker.Start()
	}
}

func (a *App) restartMeter() {
	if a.worker != nil {
		a.worker.Stop()
		a.worker = nil
	}
	a.reconcileMeter()
}

// collectWorker reaps a worker that exited on its own (device loss),
// draining any final activity flip first.
func (a *App) collectWorker() {
	for {
		select {
		case v := <-a.worker.Activity():
			a.notifyActivity(v)
		default:
			a.worker = nil
			return
		}
	}
}

// Configuration

func bindingsFrom(h config.Hotkey) hook.Bindings {
	b := hook.Bindings{
		ToggleVK: h.Toggle.VK,
		MuteVK:   h.Mute.VK,
		UnmuteVK: h.Unmute.VK,
	}
	if h.Mode == config.HotkeyModeSeparate {
		b.Mode = hook.ModeSeparate
	}
	return b
}

func (a *App) reloadConfig() {
	cfg, err := a.store.Load()
	if err != nil {
		slog.Warn("config reload failed", "error", err)
		return
	}
	// The watcher also fires for the store's own saves; identical content
	// means there is nothing to apply.
	if reflect.DeepEqual(cfg, a.cfg) {
		slog.Debug("config unchanged, skipping reload")
		return
	}
	a.applyConfig(cfg)
	slog.Info("configuration reloaded")
}

func (a *App) applyConfig(cfg *config.Config) {
	a.cfg = cfg
	a.engine.SetBindings(bindingsFrom(cfg.Hotkey))
	a.dispatcher.Apply(feedback.SettingsFrom(cfg))
	a.controller.SetMaster(cfg.DeviceID)
	a.controller.SetSyncIDs(cfg.SyncIDs)
	a.rescheduleAFK()
	a.restartMeter()
	if a.obs.OnConfigChanged != nil {
		a.obs.OnConfigChanged(cfg.Clone())
	}
}

// updateConfig mutates the live config, persists it, and re-applies it.
func (a *App) updateConfig(mutate func(*config.Config)) {
	mutate(a.cfg)
	a.store.Save(a.cfg)
	a.applyConfig(a.cfg)
}

func (a *App) healSound(muted bool, spec config.SoundSpec) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) {
			if muted {
				c.SoundConfig.Mute = spec
			} else {
				c.SoundConfig.Unmute = spec
			}
		})
	})
}

func (a *App) finishRecording(vk uint32) {
	target := a.recordTarget
	if target == "" {
		target = "toggle"
	}
	a.recordTarget = ""
	name := hook.KeyName(vk)
	slog.Info("hotkey captured", "target", target, "vk", fmt.Sprintf("%#x", vk), "key", name)
	a.updateConfig(func(c *config.Config) {
		b := config.Binding{VK: vk, Name: name}
		switch target {
		case "mute":
			c.Hotkey.Mute = b
		case "unmute":
			c.Hotkey.Unmute = b
		default:
			c.Hotkey.Toggle = b
		}
	})
	if a.obs.OnKeyCaptured != nil {
		a.obs.OnKeyCaptured(target, vk, name)
	}
}

// Public surface, safe from any goroutine.

func (a *App) post(fn func()) {
	a.tasks <- fn
}

// Toggle flips the mute state.
func (a *App) Toggle() { a.post(func() { a.controller.Toggle() }) }

// SetMute drives the mute state.
func (a *App) SetMute(muted bool) { a.post(func() { a.controller.SetMute(muted) }) }

// SetFeedbackEnabled switches the audible cues on or off.
func (a *App) SetFeedbackEnabled(enabled bool) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) { c.BeepEnabled = enabled })
	})
}

// SetAudioMode selects beep or custom cues.
func (a *App) SetAudioMode(mode string) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) { c.AudioMode = mode })
	})
}

// SetAFKEnabled switches idle auto-mute on or off.
func (a *App) SetAFKEnabled(enabled bool) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) { c.AFK.Enabled = enabled })
	})
}

// SelectDevice pins the master device; empty follows the system default.
func (a *App) SelectDevice(id string) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) { c.DeviceID = id })
		a.refreshMuted()
	})
}

// MakeDefault asks the OS to make the device its default capture endpoint.
func (a *App) MakeDefault(id string) {
	a.post(func() {
		if err := a.gw.SetDefaultCaptureDevice(id); err != nil {
			slog.Warn("set default device failed", "device", id, "error", err)
			a.dispatcher.Failure()
		}
	})
}

// ToggleSyncDevice adds or removes a device from the sync set.
func (a *App) ToggleSyncDevice(id string) {
	a.post(func() {
		a.updateConfig(func(c *config.Config) {
			for i, sid := range c.SyncIDs {
				if sid == id {
					c.SyncIDs = append(c.SyncIDs[:i], c.SyncIDs[i+1:]...)
					return
				}
			}
			c.SyncIDs = append(c.SyncIDs, id)
		})
	})
}

// CaptureBinding arms hotkey capture; the next key press lands in the
// named binding ("toggle", "mute" or "unmute").
func (a *App) CaptureBinding(target string) {
	a.post(func() {
		a.recordTarget = target
		a.engine.StartRecording()
	})
}

// Devices lists the active capture devices. Blocks until the loop answers.
func (a *App) Devices() []wasapi.Device {
	res := make(chan []wasapi.Device, 1)
	a.post(func() {
		devs, err := a.gw.EnumerateCaptureDevices()
		if err != nil {
			slog.Warn("device enumeration failed", "error", err)
		}
		res <- devs
	})
	return <-res
}

// ConfigPath returns the path of the backing config file.
func (a *App) ConfigPath() string { return a.store.Path() }

// Snapshot returns the current config and mute state.
func (a *App) Snapshot() (*config.Config, bool) {
	type state struct {
		cfg   *config.Config
		muted bool
	}
	res := make(chan state, 1)
	a.post(func() { res <- state{a.cfg.Clone(), a.muted} })
	s := <-res
	return s.cfg, s.muted
}
