//go:build windows

package wasapi

import (
	"fmt"

	"github.com/moutend/go-wca/pkg/wca"
)

// DeviceWatcher forwards default-capture-device changes from the OS
// notification callback to a channel. The callback runs on a COM worker
// thread, so it only performs a non-blocking send; consumers that fall
// behind see the most recent change on their next receive.
type DeviceWatcher struct {
	mmde    *wca.IMMDeviceEnumerator
	client  *wca.IMMNotificationClient
	changes chan string
}

// WatchDefaultDevice registers an endpoint notification callback and
// reports the new default capture device id on every console-role change.
// Must be called from the gateway's COM thread.
func WatchDefaultDevice() (*DeviceWatcher, error) {
	w := &DeviceWatcher{changes: make(chan string, 1)}

	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &w.mmde); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	w.client = wca.NewIMMNotificationClient(wca.IMMNotificationClientCallback{
		OnDefaultDeviceChanged: func(flow wca.EDataFlow, role wca.ERole, id string) error {
			if uint32(flow) == uint32(wca.ECapture) && uint32(role) == uint32(wca.EConsole) {
				select {
				case w.changes <- id:
				default:
					// Keep only the newest pending change.
					select {
					case <-w.changes:
					default:
					}
					select {
					case w.changes <- id:
					default:
					}
				}
			}
			return nil
		},
	})

	if err := w.mmde.RegisterEndpointNotificationCallback(w.client); err != nil {
		w.mmde.Release()
		return nil, fmt.Errorf("register device notifications: %w", err)
	}
	return w, nil
}

// Changes delivers the id of each new default capture device.
func (w *DeviceWatcher) Changes() <-chan string { return w.changes }

// Close unregisters the callback. Must run on the registering thread.
func (w *DeviceWatcher) Close() error {
	err := w.mmde.UnregisterEndpointNotificationCallback(w.client)
	w.mmde.Release()
	return err
}
