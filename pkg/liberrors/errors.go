// Package liberrors contains the error taxonomy of spec §7: one exported
// struct per named error kind, each implementing the error interface, so
// callers that need structured fields can recover them with errors.As
// instead of parsing a message string.
package liberrors

import "fmt"

// ErrNotInitialized is returned when an operation is attempted on a
// connection, endpoint or pool that has not been created yet.
type ErrNotInitialized struct {
	What string
}

func (e *ErrNotInitialized) Error() string {
	return fmt.Sprintf("%s is not initialized", e.What)
}

// ErrInvalidHandle is returned when a handle does not refer to a live
// object, or refers to one of the wrong kind (spec §4.7: a connection
// created in multi-endpoint mode passed to the single-endpoint TX call).
type ErrInvalidHandle struct {
	Reason string
}

func (e *ErrInvalidHandle) Error() string {
	return fmt.Sprintf("invalid handle: %s", e.Reason)
}

// ErrInvalidParameter is returned when a caller-supplied parameter is out
// of range or inconsistent with other parameters.
type ErrInvalidParameter struct {
	Name   string
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Name, e.Reason)
}

// ErrQueueFull is returned by the public send operation when the
// adapter's submit queue is saturated (spec §4.4, §4.7).
type ErrQueueFull struct{}

func (e *ErrQueueFull) Error() string {
	return "adapter submit queue is full"
}

// ErrNotEnoughMemory is returned when a pool cannot satisfy a request and
// cannot grow further.
type ErrNotEnoughMemory struct {
	Pool string
}

func (e *ErrNotEnoughMemory) Error() string {
	return fmt.Sprintf("pool %s exhausted", e.Pool)
}

// ErrArraySizeExceeded is returned when a fixed-size array (such as the
// payload-state ring) cannot accept another entry.
type ErrArraySizeExceeded struct {
	What  string
	Limit int
}

func (e *ErrArraySizeExceeded) Error() string {
	return fmt.Sprintf("%s exceeded limit of %d", e.What, e.Limit)
}

// ErrDuplicateBaselineVersion is returned by the baseline profile
// registry when a (media type, version) pair is registered twice.
type ErrDuplicateBaselineVersion struct {
	MediaType string
	Version   string
}

func (e *ErrDuplicateBaselineVersion) Error() string {
	return fmt.Sprintf("baseline profile %s version %s already registered", e.MediaType, e.Version)
}

// ErrProfileNotSupported is returned when the baseline registry has no
// v-table for a requested (media type, version) pair.
type ErrProfileNotSupported struct {
	MediaType string
	Version   string
}

func (e *ErrProfileNotSupported) Error() string {
	return fmt.Sprintf("baseline profile %s version %s not supported", e.MediaType, e.Version)
}

// ErrProbePacketInvalidSize is returned when a probe control packet's
// declared command and actual length do not agree.
type ErrProbePacketInvalidSize struct {
	Got, Want int
}

func (e *ErrProbePacketInvalidSize) Error() string {
	return fmt.Sprintf("probe packet has invalid size: got %d bytes, want %d", e.Got, e.Want)
}

// ErrProbePacketCRCError is returned when a probe control packet's
// checksum does not match its recomputed value.
type ErrProbePacketCRCError struct{}

func (e *ErrProbePacketCRCError) Error() string {
	return "probe packet checksum mismatch"
}

// ErrInvalidPayload is returned when a payload's wire framing is
// internally inconsistent (e.g. conflicting total_payload_size values
// across packets of the same payload).
type ErrInvalidPayload struct {
	Reason string
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid payload: %s", e.Reason)
}

// ErrBufferOverflow is returned when a caller-supplied buffer is too
// small for the data that must be written into it.
type ErrBufferOverflow struct {
	Need, Have int
}

func (e *ErrBufferOverflow) Error() string {
	return fmt.Sprintf("buffer overflow: need %d bytes, have %d", e.Need, e.Have)
}

// ErrTimeout is returned when a payload's max_latency_microsecs elapses
// before it could be completed or acknowledged.
type ErrTimeout struct {
	PayloadNum uint32
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("payload %d timed out", e.PayloadNum)
}

// ErrFatalNonRecoverable marks a condition the connection cannot recover
// from without being recreated.
type ErrFatalNonRecoverable struct {
	Reason string
}

func (e *ErrFatalNonRecoverable) Error() string {
	return fmt.Sprintf("fatal error: %s", e.Reason)
}

// ErrNonFatal wraps a condition that was absorbed and logged per spec §7
// ("wire-level errors... are absorbed and logged; they never abort the
// connection") but that a caller explicitly asked to observe.
type ErrNonFatal struct {
	Reason string
}

func (e *ErrNonFatal) Error() string {
	return e.Reason
}
