// Package ui implements the system tray surface: the mute indicator icon
// and the menu for toggling, feedback, idle auto-mute, hotkey capture, and
// device selection.
package ui

import (
	"fmt"
	"sync/atomic"

	"fyne.io/systray"

	"micmute/assets"
	"micmute/pkg/app"
	"micmute/pkg/config"
)

// Tray is the system tray presence. All mutations are funneled through
// systray, which is safe to call from any goroutine, so the app's
// observer callbacks can drive it directly.
type Tray struct {
	app  *app.App
	quit func()

	// State changes arriving before onReady has built the menu are
	// dropped; onReady pulls a fresh snapshot afterwards, so nothing
	// is lost.
	ready atomic.Bool

	mToggle   *systray.MenuItem
	mHotkey   *systray.MenuItem
	mFeedback *systray.MenuItem
	mAFK      *systray.MenuItem
	mDevices  *systray.MenuItem
	mQuit     *systray.MenuItem
}

func New(a *app.App, quit func()) *Tray {
	return &Tray{app: a, quit: quit}
}

// Run blocks running the tray loop; call from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and unblocks Run.
func (t *Tray) Quit() { systray.Quit() }

func (t *Tray) onReady() {
	systray.SetIcon(assets.IconLive())
	systray.SetTitle("MicMute")
	systray.SetTooltip("MicMute")

	t.mToggle = systray.AddMenuItem("Mute microphone", "Toggle the microphone mute state")
	systray.AddSeparator()
	t.mHotkey = systray.AddMenuItem("Set hotkey...", "Press any key to bind it")
	t.mFeedback = systray.AddMenuItemCheckbox("Audio feedback", "Play a sound on mute and unmute", false)
	t.mAFK = systray.AddMenuItemCheckbox("Auto-mute when idle", "Mute after a period without input", false)
	systray.AddSeparator()
	t.mDevices = systray.AddMenuItem("Microphone", "Select the controlled device")
	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "Exit MicMute")

	t.ready.Store(true)
	cfg, muted := t.app.Snapshot()
	t.ApplyConfig(cfg)
	t.SetMuted(muted)
	t.buildDeviceMenu(cfg)

	go t.clickLoop()
}

func (t *Tray) onExit() {
	if t.quit != nil {
		t.quit()
	}
}

func (t *Tray) clickLoop() {
	for {
		select {
		case <-t.mToggle.ClickedCh:
			t.app.Toggle()
		case <-t.mHotkey.ClickedCh:
			t.mHotkey.SetTitle("Press a key...")
			t.app.CaptureBinding("toggle")
		case <-t.mFeedback.ClickedCh:
			t.app.SetFeedbackEnabled(!t.mFeedback.Checked())
		case <-t.mAFK.ClickedCh:
			t.app.SetAFKEnabled(!t.mAFK.Checked())
		case <-t.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (t *Tray) buildDeviceMenu(cfg *config.Config) {
	sub := t.mDevices.AddSubMenuItemCheckbox("System default", "Follow the OS default capture device", cfg.DeviceID == "")
	go t.deviceClicks(sub, "")

	for _, dev := range t.app.Devices() {
		item := t.mDevices.AddSubMenuItemCheckbox(dev.FriendlyName, dev.ID, cfg.DeviceID == dev.ID)
		go t.deviceClicks(item, dev.ID)
	}
}

func (t *Tray) deviceClicks(item *systray.MenuItem, id string) {
	for range item.ClickedCh {
		t.app.SelectDevice(id)
	}
}

// SetMuted updates the icon and toggle label for the new state.
func (t *Tray) SetMuted(muted bool) {
	if !t.ready.Load() {
		return
	}
	if muted {
		systray.SetIcon(assets.IconMuted())
		systray.SetTooltip("MicMute: muted")
		t.mToggle.SetTitle("Unmute microphone")
	} else {
		systray.SetIcon(assets.IconLive())
		systray.SetTooltip("MicMute: live")
		t.mToggle.SetTitle("Mute microphone")
	}
}

// SetVoiceActivity reflects live input in the tooltip.
func (t *Tray) SetVoiceActivity(active bool) {
	if !t.ready.Load() {
		return
	}
	if active {
		systray.SetTooltip("MicMute: live, voice detected")
	} else {
		systray.SetTooltip("MicMute: live")
	}
}

// ApplyConfig refreshes the checkable menu entries from the config.
func (t *Tray) ApplyConfig(cfg *config.Config) {
	if !t.ready.Load() {
		return
	}
	t.mHotkey.SetTitle(fmt.Sprintf("Hotkey: %s", cfg.Hotkey.Toggle.Name))
	setChecked(t.mFeedback, cfg.BeepEnabled)
	setChecked(t.mAFK, cfg.AFK.Enabled)
}

func setChecked(item *systray.MenuItem, v bool) {
	if v {
		item.Check()
	} else {
		item.Uncheck()
	}
}
