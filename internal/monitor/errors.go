package monitor

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrDeviceNotFound is returned when neither the device ID nor a
	// deviceName fallback matches a known device.
	ErrDeviceNotFound = errors.New("monitor: device not found")

	// ErrConnectionNotFound is returned when a connection ID does not exist
	// in the addressed device's log.
	ErrConnectionNotFound = errors.New("monitor: connection not found")

	// ErrUnsupportedProtocol is returned for protocol strings outside the
	// known enum.
	ErrUnsupportedProtocol = errors.New("monitor: unsupported protocol")

	// ErrInvalidStatus is returned for status strings other than
	// online/offline.
	ErrInvalidStatus = errors.New("monitor: invalid status")

	// ErrDeviceNameRequired is returned when a registration omits the
	// device name.
	ErrDeviceNameRequired = errors.New("monitor: device name required")
)
