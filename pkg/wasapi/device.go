// Package wasapi wraps the Windows Core Audio endpoint API: capture device
// enumeration, endpoint volume mute control, default device management,
// peak metering, and default-device-change notifications.
//
// The OS owns device lifetime. A Device value is a snapshot; any id may
// stop resolving at any moment, so every call accepting an id can return
// ErrDeviceUnavailable and callers are expected to treat that as a
// best-effort skip, never a fatal condition.
package wasapi

import "errors"

var (
	// ErrDeviceUnavailable means a device id no longer resolves to a live
	// endpoint (unplugged, disabled, or never existed).
	ErrDeviceUnavailable = errors.New("wasapi: device unavailable")

	// ErrEnumeration means the audio subsystem itself could not be reached.
	ErrEnumeration = errors.New("wasapi: device enumeration failed")

	// ErrUnsupported is returned by every operation on non-Windows builds.
	ErrUnsupported = errors.New("wasapi: not supported on this platform")
)

// FallbackName is used when a device's friendly name cannot be read.
const FallbackName = "Unknown Device"

// Device identifies one audio capture endpoint.
type Device struct {
	ID           string
	FriendlyName string
}
