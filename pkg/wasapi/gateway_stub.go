//go:build !windows

package wasapi

// Gateway is a stub on non-Windows platforms; every operation reports
// ErrUnsupported. It exists so the rest of the application compiles and
// its logic can be tested anywhere.
type Gateway struct{}

func NewGateway() (*Gateway, error) { return &Gateway{}, nil }

func (g *Gateway) Close() error { return nil }

func (g *Gateway) EnumerateCaptureDevices() ([]Device, error) { return nil, ErrUnsupported }

func (g *Gateway) DefaultCaptureDevice() (Device, error) { return Device{}, ErrUnsupported }

func (g *Gateway) SetDefaultCaptureDevice(id string) error { return ErrUnsupported }

func (g *Gateway) GetMute(id string) (bool, error) { return false, ErrUnsupported }

func (g *Gateway) SetMute(id string, mute bool) error { return ErrUnsupported }

// MeterSession is unavailable off Windows.
type MeterSession struct{}

func OpenMeter(id string) (*MeterSession, error) { return nil, ErrUnsupported }

func (s *MeterSession) ReadPeak() (float64, error) { return 0, ErrUnsupported }

func (s *MeterSession) Close() error { return nil }

// DeviceWatcher is unavailable off Windows.
type DeviceWatcher struct{ changes chan string }

func WatchDefaultDevice() (*DeviceWatcher, error) { return nil, ErrUnsupported }

func (w *DeviceWatcher) Changes() <-chan string { return w.changes }

func (w *DeviceWatcher) Close() error { return nil }
