package utils

import "fmt"

// AppError names the pipeline operation that failed (LoadDataset,
// DetectHotspots, SeriesForCluster) alongside a human-facing message and the
// underlying cause. Unwrap keeps sentinel matching intact, so transport-level
// status mapping still sees the domain error through the wrapper.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError wraps err with the failing operation and message.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
