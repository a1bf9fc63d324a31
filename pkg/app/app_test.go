package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"micmute/pkg/app"
	"micmute/pkg/config"
	"micmute/pkg/hook"
	"micmute/pkg/meter"
	"micmute/pkg/wasapi"
)

type muteWrite struct {
	id    string
	muted bool
}

type fakeGateway struct {
	mu     sync.Mutex
	states map[string]bool
	writes chan muteWrite
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		states: map[string]bool{},
		writes: make(chan muteWrite, 32),
	}
}

func (g *fakeGateway) EnumerateCaptureDevices() ([]wasapi.Device, error) {
	return []wasapi.Device{{ID: "dev-1", FriendlyName: "Test Mic"}}, nil
}

func (g *fakeGateway) DefaultCaptureDevice() (wasapi.Device, error) {
	return wasapi.Device{ID: "dev-1", FriendlyName: "Test Mic"}, nil
}

func (g *fakeGateway) SetDefaultCaptureDevice(id string) error { return nil }

func (g *fakeGateway) GetMute(id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[id], nil
}

func (g *fakeGateway) SetMute(id string, muted bool) error {
	g.mu.Lock()
	g.states[id] = muted
	g.mu.Unlock()
	g.writes <- muteWrite{id, muted}
	return nil
}

func (g *fakeGateway) Close() error { return nil }

type fakeHook struct{}

func (fakeHook) Uninstall() error { return nil }

type steadySource struct{ peak float64 }

func (s steadySource) ReadPeak() (float64, error) { return s.peak, nil }
func (s steadySource) Close() error               { return nil }

type harness struct {
	app    *app.App
	gw     *fakeGateway
	engine *hook.Engine
	cancel context.CancelFunc
	done   chan struct{}
}

func start(t *testing.T, cfg *config.Config, obs app.Observers, opts app.Options) *harness {
	t.Helper()
	h := &harness{gw: newFakeGateway(), done: make(chan struct{})}

	engineReady := make(chan *hook.Engine, 1)
	opts.OpenGateway = func() (app.AudioGateway, error) { return h.gw, nil }
	opts.InstallHook = func(e *hook.Engine) (app.KeyboardHook, error) {
		engineReady <- e
		return fakeHook{}, nil
	}
	opts.WatchDevices = func() (app.DeviceWatch, error) { return nil, errors.New("not wired") }
	if opts.OpenMeter == nil {
		opts.OpenMeter = func(string) (meter.Source, error) { return nil, errors.New("no meter") }
	}
	if opts.Idle == nil {
		opts.Idle = func() (time.Duration, error) { return 0, nil }
	}

	store := config.NewStore(t.TempDir())
	h.app = app.New(cfg, store, obs, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.done)
		if err := h.app.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("app did not shut down")
		}
	})

	select {
	case h.engine = <-engineReady:
	case <-time.After(5 * time.Second):
		t.Fatal("hook never installed")
	}
	return h
}

func waitWrite(t *testing.T, gw *fakeGateway) muteWrite {
	t.Helper()
	select {
	case w := <-gw.writes:
		return w
	case <-time.After(5 * time.Second):
		t.Fatal("no mute write observed")
		panic("unreachable")
	}
}

func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.BeepEnabled = false
	return cfg
}

func press(e *hook.Engine, vk uint32) {
	e.OnKeyEvent(vk, true)
	e.OnKeyEvent(vk, false)
}

func TestHotkeyActionsApplyInPressOrder(t *testing.T) {
	cfg := quietConfig()
	cfg.Hotkey = config.Hotkey{
		Mode:   config.HotkeyModeSeparate,
		Mute:   config.Binding{VK: 'M', Name: "M"},
		Unmute: config.Binding{VK: 'U', Name: "U"},
	}
	h := start(t, cfg, app.Observers{}, app.Options{})

	press(h.engine, 'M')
	press(h.engine, 'U')
	press(h.engine, 'M')

	want := []bool{true, false, true}
	for i, w := range want {
		got := waitWrite(t, h.gw)
		if got.id != "" || got.muted != w {
			t.Fatalf("write %d = %+v, want master muted=%v", i, got, w)
		}
	}
}

func TestToggleFollowsDeviceState(t *testing.T) {
	cfg := quietConfig()
	h := start(t, cfg, app.Observers{}, app.Options{})

	// The device was muted behind the app's back; a toggle must unmute.
	h.gw.mu.Lock()
	h.gw.states[""] = true
	h.gw.mu.Unlock()

	press(h.engine, cfg.Hotkey.Toggle.VK)
	if got := waitWrite(t, h.gw); got.muted {
		t.Fatalf("write = %+v, want unmute", got)
	}
}

func TestAFKMutesWhenIdleExceedsTimeout(t *testing.T) {
	cfg := quietConfig()
	cfg.AFK = config.AFK{Enabled: true, Timeout: 5}
	h := start(t, cfg, app.Observers{}, app.Options{
		Idle: func() (time.Duration, error) { return 10 * time.Second, nil },
	})

	if got := waitWrite(t, h.gw); !got.muted {
		t.Fatalf("write = %+v, want auto-mute", got)
	}
}

func TestMeterReportsActivityAndStopsOnMute(t *testing.T) {
	cfg := quietConfig()
	cfg.Overlay = config.Overlay{Enabled: true, ShowVU: true, Sensitivity: 5}

	activity := make(chan bool, 8)
	h := start(t, cfg, app.Observers{
		OnVoiceActivity: func(v bool) { activity <- v },
	}, app.Options{
		OpenMeter: func(string) (meter.Source, error) { return steadySource{peak: 0.5}, nil },
	})

	select {
	case v := <-activity:
		if !v {
			t.Fatal("first activity report was false")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no voice activity reported")
	}

	h.app.SetMute(true)
	waitWrite(t, h.gw)
	select {
	case v := <-activity:
		if v {
			t.Fatal("activity stayed on after mute")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("indicator not cleared after mute")
	}
}

func TestConfigReloadRebinds(t *testing.T) {
	cfg := quietConfig()
	cfg.Hotkey.Toggle = config.Binding{VK: 'A', Name: "A"}

	changes := make(chan struct{}, 1)
	applied := make(chan *config.Config, 1)
	h := start(t, cfg, app.Observers{
		OnConfigChanged: func(c *config.Config) { applied <- c },
	}, app.Options{
		ConfigChanges: changes,
	})

	doc := []byte(`{"beep_enabled": false, "hotkey": {"mode": "toggle", "toggle": {"vk": 66, "name": "B"}}}`)
	if err := os.WriteFile(h.app.ConfigPath(), doc, 0o644); err != nil {
		t.Fatal(err)
	}
	changes <- struct{}{}

	select {
	case c := <-applied:
		if c.Hotkey.Toggle.VK != 'B' {
			t.Fatalf("reloaded toggle vk = %#x, want 'B'", c.Hotkey.Toggle.VK)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change never applied")
	}

	press(h.engine, 'A')
	press(h.engine, 'B')
	if got := waitWrite(t, h.gw); !got.muted {
		t.Fatalf("write = %+v, want toggle from new binding", got)
	}
}

func TestConfigReloadSkipsUnchangedDocument(t *testing.T) {
	cfg := quietConfig()

	changes := make(chan struct{}, 1)
	applied := make(chan *config.Config, 1)
	h := start(t, cfg, app.Observers{
		OnConfigChanged: func(c *config.Config) { applied <- c },
	}, app.Options{
		ConfigChanges: changes,
	})

	// Write back exactly what the app is already running with, the way the
	// store's own debounced save does.
	snap, _ := h.app.Snapshot()
	doc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.app.ConfigPath(), doc, 0o644); err != nil {
		t.Fatal(err)
	}
	changes <- struct{}{}

	select {
	case <-applied:
		t.Fatal("unchanged config was reapplied")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCaptureBindingUpdatesConfig(t *testing.T) {
	cfg := quietConfig()
	captured := make(chan uint32, 1)
	h := start(t, cfg, app.Observers{
		OnKeyCaptured: func(target string, vk uint32, name string) {
			if target != "toggle" {
				t.Errorf("target = %q, want toggle", target)
			}
			if name != "F6" {
				t.Errorf("name = %q, want F6", name)
			}
			captured <- vk
		},
	}, app.Options{})

	h.app.CaptureBinding("toggle")
	// Give the loop a moment to arm recording before the press.
	deadline := time.Now().Add(5 * time.Second)
	for !h.engine.Recording() {
		if time.Now().After(deadline) {
			t.Fatal("recording never armed")
		}
		time.Sleep(time.Millisecond)
	}

	h.engine.OnKeyEvent(0x75, true)
	select {
	case vk := <-captured:
		if vk != 0x75 {
			t.Fatalf("captured vk = %#x, want 0x75", vk)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("capture never completed")
	}

	got, _ := h.app.Snapshot()
	if got.Hotkey.Toggle.VK != 0x75 {
		t.Fatalf("config toggle vk = %#x, want 0x75", got.Hotkey.Toggle.VK)
	}
}
