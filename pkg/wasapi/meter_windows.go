//go:build windows

package wasapi

import (
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// MeterSession holds an activated peak meter plus a running capture stream
// on the same endpoint. Some drivers report permanent zeros from
// IAudioMeterInformation unless an audio client is actively capturing, so
// the stream exists only to light the meter up; no audio is ever read.
//
// A session is opened, polled, and closed on one goroutine, which must be
// locked to its OS thread: OpenMeter initializes COM there and Close
// uninitializes it.
type MeterSession struct {
	mmd *wca.IMMDevice
	ac  *wca.IAudioClient
	ami *wca.IAudioMeterInformation
}

// OpenMeter activates a peak meter for the device with the given id
// (empty id = default capture device) and starts its backing stream.
func OpenMeter(id string) (*MeterSession, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return nil, fmt.Errorf("initialize COM: %w", err)
	}

	s, err := openMeterLocked(id)
	if err != nil {
		ole.CoUninitialize()
		return nil, err
	}
	return s, nil
}

func openMeterLocked(id string) (*MeterSession, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	defer mmde.Release()

	mmd, err := resolve(mmde, id)
	if err != nil {
		return nil, err
	}

	s := &MeterSession{mmd: mmd}

	if err := mmd.Activate(wca.IID_IAudioMeterInformation, wca.CLSCTX_ALL, nil, &s.ami); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %q: activate meter: %v", ErrDeviceUnavailable, id, err)
	}
	if err := mmd.Activate(wca.IID_IAudioClient, wca.CLSCTX_ALL, nil, &s.ac); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %q: activate audio client: %v", ErrDeviceUnavailable, id, err)
	}

	var wfx *wca.WAVEFORMATEX
	if err := s.ac.GetMixFormat(&wfx); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %q: mix format: %v", ErrDeviceUnavailable, id, err)
	}
	defer ole.CoTaskMemFree(uintptr(unsafe.Pointer(wfx)))

	// 100ms shared-mode buffer; the stream is never drained.
	if err := s.ac.Initialize(wca.AUDCLNT_SHAREMODE_SHARED, 0, wca.REFERENCE_TIME(1000000), 0, wfx, nil); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %q: initialize stream: %v", ErrDeviceUnavailable, id, err)
	}
	if err := s.ac.Start(); err != nil {
		s.release()
		return nil, fmt.Errorf("%w: %q: start stream: %v", ErrDeviceUnavailable, id, err)
	}

	return s, nil
}

// ReadPeak returns the most recent instantaneous peak amplitude in [0, 1].
func (s *MeterSession) ReadPeak() (float64, error) {
	var peak float32
	if err := s.ami.GetPeakValue(&peak); err != nil {
		return 0, fmt.Errorf("%w: get peak: %v", ErrDeviceUnavailable, err)
	}
	return float64(peak), nil
}

// Close stops the backing stream, releases all interfaces, and leaves the
// COM apartment. Must run on the OpenMeter goroutine.
func (s *MeterSession) Close() error {
	if s.ac != nil {
		_ = s.ac.Stop()
	}
	s.release()
	ole.CoUninitialize()
	return nil
}

func (s *MeterSession) release() {
	if s.ami != nil {
		s.ami.Release()
		s.ami = nil
	}
	if s.ac != nil {
		s.ac.Release()
		s.ac = nil
	}
	if s.mmd != nil {
		s.mmd.Release()
		s.mmd = nil
	}
}
