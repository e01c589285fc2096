package coordinator

import (
	"fmt"

	"github.com/tandem-cli/tandem/media"
)

// NoticeKind classifies a notice raised to the caller.
type NoticeKind int

const (
	// NoticeDegradedStart reports a stream that could not join a synchronized start.
	NoticeDegradedStart NoticeKind = iota
	// NoticeStartFailed reports a stream that could not be started at all.
	NoticeStartFailed
	// NoticeOpenFailed reports a stream whose source could not be opened.
	NoticeOpenFailed
	// NoticeStreamError reports an engine failure after opening.
	NoticeStreamError
	// NoticeEnded reports a stream reaching the end of its clip.
	NoticeEnded
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeDegradedStart:
		return "degraded start"
	case NoticeStartFailed:
		return "start failed"
	case NoticeOpenFailed:
		return "open failed"
	case NoticeStreamError:
		return "stream error"
	case NoticeEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Warning reports whether the notice needs the user's attention.
func (k NoticeKind) Warning() bool {
	return k != NoticeEnded
}

// Notice is a non-fatal event surfaced to the caller.
type Notice struct {
	Kind   NoticeKind
	Stream media.ID
	Err    error
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %s: %v", n.Stream, n.Kind, n.Err)
	}
	return fmt.Sprintf("%s: %s", n.Stream, n.Kind)
}
