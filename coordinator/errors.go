package coordinator

import (
	"errors"
	"fmt"

	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/scrub"
)

var (
	ErrNoStreams       = errors.New("no controllable streams")
	ErrTooManyStreams  = errors.New("too many streams")
	ErrDuplicateStream = errors.New("stream already registered")
	ErrUnknownStream   = errors.New("unknown stream")
	ErrUnavailable     = errors.New("stream is not controllable")
	ErrNotPaused       = errors.New("frame step requires paused playback")
	ErrInvalidRate     = errors.New("rate must be positive")
	ErrModeMismatch    = errors.New("operation not available in the current mode")
	ErrNoGesture       = scrub.ErrNoGesture
)

// OpenError reports a stream that failed to open. The stream stays registered
// in the error state and is excluded from coordinated operations.
type OpenError struct {
	ID     media.ID
	Source string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Source, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
