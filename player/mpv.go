package player

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/where"
	"k8s.io/utils/clock"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	loadWaitRetries   = 20
	loadWaitDelay     = 100 * time.Millisecond
)

// MPV drives one mpv process as a media.Stream using mpv's JSON-IPC protocol.
// It supports scheduled starts, stall control and sync point chapters.
type MPV struct {
	id         media.ID
	clock      clock.WithDelayedExecution
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when mpv process exits
	listener   *EventListener
	observers  media.Observers
	mu         sync.Mutex // Protects socket writes

	stateMu  sync.Mutex
	state    media.State
	position time.Duration
	duration time.Duration
	rate     float64
	gen      uint64
}

// NewMPV creates an mpv stream that is not yet started.
func NewMPV(clk clock.WithDelayedExecution) *MPV {
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &MPV{
		id:     media.ID(uuid.NewString()),
		clock:  clk,
		exited: make(chan struct{}),
		state:  media.StateIdle,
		rate:   1,
	}
}

func (m *MPV) ID() media.ID {
	return m.id
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// Open launches a paused mpv instance for source and blocks until the clip is loaded.
func (m *MPV) Open(ctx context.Context, source string) error {
	target, err := sanitizeMediaTarget(source)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	m.setState(media.StateOpening)

	if m.socketPath == "" {
		m.socketPath = filepath.Join(where.Temp(), fmt.Sprintf("mpv-%s.sock", uuid.NewString()[:8]))
	}

	m.cmd = exec.Command("mpv", buildArgs(m.socketPath, target)...)
	detach(m.cmd)

	if err := m.cmd.Start(); err != nil {
		m.fail(err)
		return fmt.Errorf("start mpv: %w", err)
	}

	// Reap the process to prevent zombies
	m.exited = make(chan struct{})
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
		m.onExit()
	}()

	if err := m.waitForSocket(ctx); err != nil {
		select {
		case <-m.exited:
		default:
			log.WithFields(logrus.Fields{"stream": m.id}).Warn("killing mpv: socket never became ready")
			_ = kill(m.cmd)
		}
		m.fail(err)
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.listener = NewEventListener(m.socketPath, m.handleProperty)
	if err := m.listener.Start(); err != nil {
		m.fail(err)
		return err
	}

	duration, err := m.waitForDuration(ctx)
	if err != nil {
		m.fail(err)
		return fmt.Errorf("load %s: %w", target, err)
	}

	m.stateMu.Lock()
	m.duration = duration
	m.position = 0
	m.state = media.StateReady
	m.stateMu.Unlock()

	m.emit(
		media.Event{Kind: media.EventOpened, Duration: duration},
		media.Event{Kind: media.EventState, State: media.StateReady},
	)
	return nil
}

// buildArgs assembles the mpv command line. Only playback behavior needed for
// coordination is forced; the user's mpv.conf is otherwise respected.
func buildArgs(socketPath, target string) []string {
	title := sanitizeTitle(filepath.Base(target))

	return []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
		fmt.Sprintf("--force-media-title=%s", title),
		fmt.Sprintf("--title=%s", title), // Some mpv builds only respect --title
		"--force-window=yes",
		"--idle=yes",
		"--keep-open=yes",
		"--pause",
		"--hr-seek=yes",
		target,
	}
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// waitForDuration polls until mpv has loaded the file far enough to report its duration.
func (m *MPV) waitForDuration(ctx context.Context) (time.Duration, error) {
	var lastErr error
	for i := 0; i < loadWaitRetries; i++ {
		value, err := m.getFloatProperty("duration")
		if err == nil && value > 0 {
			return fromSeconds(value), nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-m.exited:
			return 0, errors.New("mpv exited while loading")
		case <-time.After(loadWaitDelay):
		}
	}

	if lastErr == nil {
		lastErr = errors.New("duration unavailable")
	}
	return 0, lastErr
}

func (m *MPV) Play() error {
	m.bump()
	return m.Set("pause", false)
}

func (m *MPV) Pause() error {
	m.bump()
	return m.Set("pause", true)
}

// Stop halts playback and reports the stream as Ready.
func (m *MPV) Stop() error {
	m.bump()
	if err := m.Set("pause", true); err != nil {
		return err
	}

	m.setState(media.StateReady)
	return nil
}

func (m *MPV) Seek(position time.Duration) error {
	m.bump()
	_, err := m.sendCommand("seek", seconds(position), "absolute+exact")
	return err
}

func (m *MPV) Step(direction media.Direction) error {
	command := "frame-step"
	if direction == media.Backward {
		command = "frame-back-step"
	}

	_, err := m.sendCommand(command)
	return err
}

func (m *MPV) Rate() float64 {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.rate
}

func (m *MPV) SetRate(rate float64) error {
	if rate <= 0 {
		return ErrInvalidRate
	}

	if err := m.Set("speed", rate); err != nil {
		return err
	}

	m.stateMu.Lock()
	m.rate = rate
	m.stateMu.Unlock()
	return nil
}

// Position reads time-pos synchronously, falling back to the last observed value.
func (m *MPV) Position() time.Duration {
	if value, err := m.getFloatProperty("time-pos"); err == nil {
		return fromSeconds(value)
	}

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.position
}

func (m *MPV) Duration() time.Duration {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.duration
}

func (m *MPV) State() media.State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

// StartAt pauses, assumes position and rate, then unpauses at deadline.
// Any Play, Pause or Stop issued before the deadline supersedes the start.
func (m *MPV) StartAt(position time.Duration, rate float64, deadline time.Time) error {
	gen := m.bump()

	if err := m.Set("pause", true); err != nil {
		return err
	}
	if err := m.SetRate(rate); err != nil {
		return err
	}
	if _, err := m.sendCommand("seek", seconds(position), "absolute+exact"); err != nil {
		return err
	}

	m.clock.AfterFunc(deadline.Sub(m.clock.Now()), func() {
		if m.generation() != gen {
			return
		}

		if err := m.Set("pause", false); err != nil {
			log.WithFields(logrus.Fields{"stream": m.id}).Warnf("scheduled start: %v", err)
		}
	})

	return nil
}

// SetWaitForBuffering maps to mpv's cache-pause behavior.
func (m *MPV) SetWaitForBuffering(enabled bool) error {
	return m.Set("cache-pause", enabled)
}

// MarkAnchor shows the sync point as a chapter on mpv's timeline.
func (m *MPV) MarkAnchor(offset time.Duration) error {
	_, err := m.sendCommand("set_property", "chapter-list", anchorChapters(offset))
	return err
}

func anchorChapters(offset time.Duration) []map[string]any {
	chapters := []map[string]any{{"title": "Start", "time": 0.0}}
	if offset > 0 {
		chapters = append(chapters, map[string]any{"title": "Sync point", "time": seconds(offset)})
	}
	return chapters
}

func (m *MPV) Subscribe(observer media.Observer) media.Subscription {
	return m.observers.Subscribe(observer)
}

// Close shuts down the mpv process and cleans up resources.
func (m *MPV) Close() error {
	m.bump()
	m.observers.Clear()

	if m.listener != nil {
		m.listener.Stop()
	}

	if m.socketPath == "" || m.cmd == nil {
		return nil
	}

	// Try graceful quit via IPC
	_, _ = m.sendCommand("quit")

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = kill(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	m.setState(media.StateIdle)
	return nil
}

// Set a property
func (m *MPV) Set(property string, value any) error {
	_, err := m.sendCommand("set_property", property, value)
	return err
}

// getFloatProperty is a helper to retrieve a float64 mpv property via IPC.
func (m *MPV) getFloatProperty(name string) (float64, error) {
	data, err := m.sendCommand("get_property", name)
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}

	return val, nil
}

// handleProperty mirrors observed mpv properties into stream state and events.
func (m *MPV) handleProperty(name string, data any) {
	var events []media.Event

	m.stateMu.Lock()
	switch name {
	case "time-pos":
		if value, ok := data.(float64); ok {
			m.position = fromSeconds(value)
			events = append(events, media.Event{Kind: media.EventPosition, Position: m.position})
		}
	case "duration":
		if value, ok := data.(float64); ok {
			m.duration = fromSeconds(value)
		}
	case "speed":
		if value, ok := data.(float64); ok && value > 0 {
			m.rate = value
		}
	case "pause":
		paused, ok := data.(bool)
		if !ok || !m.state.Controllable() {
			break
		}

		next := media.StatePlaying
		if paused {
			next = media.StatePaused
			// mpv reports the initial pause of a freshly loaded file, and a
			// paused file at its end stays ended.
			if m.state == media.StateReady || m.state == media.StateEnded {
				next = m.state
			}
		}

		if next != m.state {
			m.state = next
			events = append(events, media.Event{Kind: media.EventState, State: next})
		}
	case "eof-reached":
		if reached, ok := data.(bool); ok && reached && m.state != media.StateEnded {
			m.state = media.StateEnded
			m.position = m.duration
			events = append(events,
				media.Event{Kind: media.EventEnded, Position: m.duration},
				media.Event{Kind: media.EventState, State: media.StateEnded},
			)
		}
	case "end-file":
		event, _ := data.(map[string]any)
		if reason, _ := event["reason"].(string); reason == "error" {
			err := fmt.Errorf("mpv: playback error: %v", event["file_error"])
			m.state = media.StateError
			events = append(events,
				media.Event{Kind: media.EventError, Err: err},
				media.Event{Kind: media.EventState, State: media.StateError},
			)
		}
	}
	m.stateMu.Unlock()

	m.emit(events...)
}

// onExit reports an unexpected process exit as a stream error.
func (m *MPV) onExit() {
	m.stateMu.Lock()
	if m.state == media.StateIdle || m.state == media.StateError {
		m.stateMu.Unlock()
		return
	}
	m.state = media.StateError
	m.stateMu.Unlock()

	m.emit(
		media.Event{Kind: media.EventError, Err: errors.New("mpv exited")},
		media.Event{Kind: media.EventState, State: media.StateError},
	)
}

func (m *MPV) fail(err error) {
	log.WithFields(logrus.Fields{"stream": m.id}).Errorf("open: %v", err)
	m.setState(media.StateError)
	m.emit(media.Event{Kind: media.EventState, State: media.StateError})
}

func (m *MPV) setState(state media.State) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.state = state
}

// bump supersedes any pending scheduled start and returns the new generation.
func (m *MPV) bump() uint64 {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.gen++
	return m.gen
}

func (m *MPV) generation() uint64 {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.gen
}

func (m *MPV) emit(events ...media.Event) {
	for _, ev := range events {
		ev.Stream = m.id
		m.observers.Emit(ev)
	}
}

// sanitizeMediaTarget validates that a source is safe to pass to mpv.
// Prevents flag injection from untrusted scripts.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", errors.New("empty source")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", errors.New("invalid control characters in source")
	}

	// Sources must not look like flags
	if strings.HasPrefix(l, "-") {
		return "", errors.New("source must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "file":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

// sanitizeTitle cleans up the title shown in the mpv window.
func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
