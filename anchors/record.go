package anchors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/util"
)

// Clip is one remembered clip of a set and its sync point.
type Clip struct {
	Source      string `json:"source"`
	SyncPointMs int64  `json:"sync_point_ms"`
}

// SyncPoint returns the remembered sync point of the clip.
func (c Clip) SyncPoint() time.Duration {
	return time.Duration(c.SyncPointMs) * time.Millisecond
}

// Record holds everything remembered about one set of clips.
type Record struct {
	Clips   []Clip    `json:"clips"`
	Mode    string    `json:"mode"`
	Rate    float64   `json:"rate"`
	SavedAt time.Time `json:"saved_at"`
}

// Key identifies the clip set of the record.
func (r *Record) Key() string {
	return Key(lo.Map(r.Clips, func(c Clip, _ int) string { return c.Source }))
}

func (r *Record) String() string {
	names := lo.Map(r.Clips, func(c Clip, _ int) string {
		return fmt.Sprintf("%s@%s", filepath.Base(c.Source), util.FormatPosition(c.SyncPoint()))
	})
	return strings.Join(names, " ")
}

// Points maps the remembered sync points onto the streams of a session by source.
// Streams whose source is not part of the record are left out.
func (r *Record) Points(streams []coordinator.StreamStatus) map[media.ID]time.Duration {
	bySource := lo.SliceToMap(r.Clips, func(c Clip) (string, time.Duration) {
		return normalize(c.Source), c.SyncPoint()
	})

	points := make(map[media.ID]time.Duration)
	for _, s := range streams {
		if offset, ok := bySource[normalize(s.Source)]; ok {
			points[s.ID] = offset
		}
	}
	return points
}

// FromSession captures the sync points, mode and rate of a session.
func FromSession(session coordinator.Session) *Record {
	return &Record{
		Clips: lo.Map(session.Streams, func(s coordinator.StreamStatus, _ int) Clip {
			return Clip{Source: s.Source, SyncPointMs: s.SyncPoint.Milliseconds()}
		}),
		Mode:    session.Mode.String(),
		Rate:    session.Rate,
		SavedAt: time.Now(),
	}
}

// Key returns the identity of a set of clips. Order does not matter.
func Key(sources []string) string {
	normalized := lo.Map(sources, func(s string, _ int) string { return normalize(s) })
	sort.Strings(normalized)
	return strings.Join(normalized, " | ")
}

func normalize(source string) string {
	source = strings.TrimSpace(source)
	if strings.Contains(source, "://") {
		return source
	}
	return filepath.Clean(source)
}
