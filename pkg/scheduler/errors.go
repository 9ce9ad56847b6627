package scheduler

import "errors"

var (
	// Not found errors.
	ErrUnknownWorker = errors.New("scheduler: unknown worker")
	ErrUnknownTask   = errors.New("scheduler: unknown task")

	// Validation errors.
	ErrInvalidFrameRange = errors.New("scheduler: frame end before frame start")
	ErrInvalidStatus     = errors.New("scheduler: invalid task status")
	ErrInvalidProgress   = errors.New("scheduler: invalid progress update")

	// ErrDuplicateTaskID means the id generator returned an id already in use.
	ErrDuplicateTaskID = errors.New("scheduler: duplicate task id")
)

// errorCodes gives every sentinel a stable wire code shared by the HTTP and
// gRPC transports.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnknownWorker, "unknown_worker"},
	{ErrUnknownTask, "unknown_task"},
	{ErrInvalidFrameRange, "invalid_frame_range"},
	{ErrInvalidStatus, "invalid_status"},
	{ErrInvalidProgress, "invalid_progress"},
}

// ErrorCode returns the wire code for err, or "" when err wraps no sentinel.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// ErrorFromCode returns the sentinel for a wire code, or nil.
func ErrorFromCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}

// IsNotFound reports whether err is one of the unknown-id errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownWorker) || errors.Is(err, ErrUnknownTask)
}
