//go:build windows

package wasapi

import (
	"fmt"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// Gateway performs synchronous Core Audio calls. It holds no COM objects
// between calls; every operation re-resolves its device so a stale handle
// can never outlive the endpoint it pointed at.
//
// All methods must run on the goroutine that called NewGateway, which must
// stay locked to its OS thread for the gateway's lifetime.
type Gateway struct{}

// NewGateway initializes COM on the calling thread.
func NewGateway() (*Gateway, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return nil, fmt.Errorf("initialize COM: %w", err)
	}
	return &Gateway{}, nil
}

// Close releases the COM apartment. Must run on the NewGateway thread.
func (g *Gateway) Close() error {
	ole.CoUninitialize()
	return nil
}

func (g *Gateway) withEnumerator(fn func(*wca.IMMDeviceEnumerator) error) error {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	defer mmde.Release()
	return fn(mmde)
}

// resolve returns the endpoint for id, or the default capture endpoint when
// id is empty. The caller releases the returned device.
func resolve(mmde *wca.IMMDeviceEnumerator, id string) (*wca.IMMDevice, error) {
	var mmd *wca.IMMDevice
	if id == "" {
		if err := mmde.GetDefaultAudioEndpoint(wca.ECapture, wca.EConsole, &mmd); err != nil {
			return nil, fmt.Errorf("%w: no default capture device: %v", ErrDeviceUnavailable, err)
		}
		return mmd, nil
	}
	if err := mmde.GetDevice(id, &mmd); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDeviceUnavailable, id, err)
	}
	return mmd, nil
}

func friendlyName(mmd *wca.IMMDevice) string {
	var ps *wca.IPropertyStore
	if err := mmd.OpenPropertyStore(wca.STGM_READ, &ps); err != nil {
		return FallbackName
	}
	defer ps.Release()

	var pv wca.PROPVARIANT
	if err := ps.GetValue(&wca.PKEY_Device_FriendlyName, &pv); err != nil {
		return FallbackName
	}
	if name := pv.String(); name != "" {
		return name
	}
	return FallbackName
}

func snapshot(mmd *wca.IMMDevice) Device {
	var id string
	_ = mmd.GetId(&id)
	return Device{ID: id, FriendlyName: friendlyName(mmd)}
}

// EnumerateCaptureDevices lists all active capture endpoints.
func (g *Gateway) EnumerateCaptureDevices() ([]Device, error) {
	var out []Device
	err := g.withEnumerator(func(mmde *wca.IMMDeviceEnumerator) error {
		var mmdc *wca.IMMDeviceCollection
		if err := mmde.EnumAudioEndpoints(wca.ECapture, wca.DEVICE_STATE_ACTIVE, &mmdc); err != nil {
			return fmt.Errorf("%w: %v", ErrEnumeration, err)
		}
		defer mmdc.Release()

		var count uint32
		if err := mmdc.GetCount(&count); err != nil {
			return fmt.Errorf("%w: %v", ErrEnumeration, err)
		}
		for i := uint32(0); i < count; i++ {
			var mmd *wca.IMMDevice
			if err := mmdc.Item(i, &mmd); err != nil {
				continue
			}
			out = append(out, snapshot(mmd))
			mmd.Release()
		}
		return nil
	})
	return out, err
}

// DefaultCaptureDevice returns the OS default capture endpoint.
func (g *Gateway) DefaultCaptureDevice() (Device, error) {
	var dev Device
	err := g.withEnumerator(func(mmde *wca.IMMDeviceEnumerator) error {
		mmd, err := resolve(mmde, "")
		if err != nil {
			return err
		}
		defer mmd.Release()
		dev = snapshot(mmd)
		return nil
	})
	return dev, err
}

// SetDefaultCaptureDevice makes id the default capture endpoint for the
// console, multimedia, and communications roles. Uses the undocumented
// PolicyConfig interface; there is no public API for this.
func (g *Gateway) SetDefaultCaptureDevice(id string) error {
	var pcv *wca.IPolicyConfigVista
	if err := wca.CoCreateInstance(wca.CLSID_PolicyConfigVista, 0, wca.CLSCTX_ALL, wca.IID_IPolicyConfigVista, &pcv); err != nil {
		return fmt.Errorf("create policy config: %w", err)
	}
	defer pcv.Release()

	for _, role := range []uint32{wca.EConsole, wca.EMultimedia, wca.ECommunications} {
		if err := pcv.SetDefaultEndpoint(id, role); err != nil {
			return fmt.Errorf("%w: %q: set default endpoint role %d: %v", ErrDeviceUnavailable, id, role, err)
		}
	}
	return nil
}

func withEndpointVolume(id string, fn func(*wca.IAudioEndpointVolume) error) error {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	defer mmde.Release()

	mmd, err := resolve(mmde, id)
	if err != nil {
		return err
	}
	defer mmd.Release()

	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return fmt.Errorf("%w: %q: activate endpoint volume: %v", ErrDeviceUnavailable, id, err)
	}
	defer aev.Release()

	return fn(aev)
}

// GetMute reads the mute state of the device with the given id
// (empty id = default capture device).
func (g *Gateway) GetMute(id string) (bool, error) {
	var muted bool
	err := withEndpointVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		if err := aev.GetMute(&muted); err != nil {
			return fmt.Errorf("%w: %q: get mute: %v", ErrDeviceUnavailable, id, err)
		}
		return nil
	})
	return muted, err
}

// SetMute sets the mute state of the device with the given id.
func (g *Gateway) SetMute(id string, mute bool) error {
	return withEndpointVolume(id, func(aev *wca.IAudioEndpointVolume) error {
		if err := aev.SetMute(mute, nil); err != nil {
			return fmt.Errorf("%w: %q: set mute: %v", ErrDeviceUnavailable, id, err)
		}
		return nil
	})
}
