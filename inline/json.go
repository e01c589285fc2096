package inline

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/tandem-cli/tandem/coordinator"
)

// Stream is the reported state of one clip.
type Stream struct {
	Index       int     `json:"index"`
	Source      string  `json:"source"`
	State       string  `json:"state"`
	PositionMs  int64   `json:"position_ms"`
	DurationMs  int64   `json:"duration_ms"`
	SyncPointMs int64   `json:"sync_point_ms"`
	Rate        float64 `json:"rate"`
	Playing     bool    `json:"playing"`
	Error       string  `json:"error,omitempty"`
}

// Snapshot is the reported state of the whole comparison after one operation.
type Snapshot struct {
	// Op is the operation after which the snapshot was taken.
	Op               string    `json:"op"`
	Mode             string    `json:"mode"`
	Rate             float64   `json:"rate"`
	GlobalMs         int64     `json:"global_ms"`
	GlobalDurationMs int64     `json:"global_duration_ms"`
	Playing          bool      `json:"playing"`
	Scrubbing        bool      `json:"scrubbing"`
	Streams          []*Stream `json:"streams"`
}

type Output struct {
	Engine    string      `json:"engine"`
	Sources   []string    `json:"sources"`
	Restored  bool        `json:"restored"`
	Snapshots []*Snapshot `json:"snapshots"`
	Notices   []string    `json:"notices"`
}

func newSnapshot(op string, session coordinator.Session) *Snapshot {
	return &Snapshot{
		Op:               op,
		Mode:             session.Mode.String(),
		Rate:             session.Rate,
		GlobalMs:         session.Global.Milliseconds(),
		GlobalDurationMs: session.GlobalDuration.Milliseconds(),
		Playing:          session.Playing,
		Scrubbing:        session.Scrubbing,
		Streams: lo.Map(session.Streams, func(s coordinator.StreamStatus, i int) *Stream {
			stream := &Stream{
				Index:       i,
				Source:      s.Source,
				State:       s.State.String(),
				PositionMs:  s.Position.Milliseconds(),
				DurationMs:  s.Duration.Milliseconds(),
				SyncPointMs: s.SyncPoint.Milliseconds(),
				Rate:        s.Rate,
				Playing:     s.Playing,
			}
			if s.Err != nil {
				stream.Error = s.Err.Error()
			}
			return stream
		}),
	}
}

func asJson(output *Output) ([]byte, error) {
	if output.Snapshots == nil {
		output.Snapshots = []*Snapshot{}
	}
	if output.Notices == nil {
		output.Notices = []string{}
	}
	return json.Marshal(output)
}

// Schema returns the JSON schema of the output.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		return "inline." + t.Name()
	}
	return reflector.Reflect(&Output{})
}
