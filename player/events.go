package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tandem-cli/tandem/log"
)

// EventCallback is the function signature for mpv event notifications.
// For property changes name is the property; for other events it is the event
// name and data holds the raw event object.
type EventCallback func(name string, data any)

// observedProperties are the mpv properties mirrored into stream events.
var observedProperties = []string{
	"time-pos",
	"pause",
	"eof-reached",
	"duration",
	"speed",
}

// EventListener provides real-time mpv event monitoring via observe_property.
type EventListener struct {
	socketPath string
	conn       net.Conn
	callback   EventCallback
	done       chan struct{}
	mu         sync.Mutex
	listening  bool
}

// NewEventListener creates a new event listener for the given socket.
func NewEventListener(socketPath string, callback EventCallback) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		callback:   callback,
		done:       make(chan struct{}),
	}
}

// Start opens a persistent connection, subscribes to the observed properties on
// it and begins the read loop.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	// Observations are bound to the connection that requested them.
	for i, name := range observedProperties {
		payload, err := json.Marshal(ipcCommand{
			Command:   []any{"observe_property", i + 1, name},
			RequestID: requestID.Add(1),
		})
		if err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}

		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	go el.readLoop(conn)

	log.WithFields(logrus.Fields{
		"socket":     el.socketPath,
		"properties": observedProperties,
	}).Info("mpv event listener started")
	return nil
}

// Stop terminates the event listener.
func (el *EventListener) Stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.done)
	_ = el.conn.Close()
	el.listening = false
}

// readLoop reads newline-delimited events until the connection closes.
func (el *EventListener) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		el.processEvent(scanner.Bytes())
	}

	select {
	case <-el.done:
		return
	default:
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, os.ErrDeadlineExceeded) {
		log.WithFields(logrus.Fields{"socket": el.socketPath}).Warnf("event listener read error: %v", err)
	}

	el.mu.Lock()
	el.listening = false
	el.mu.Unlock()
}

// processEvent parses and dispatches a single mpv event line.
// Command replies carry no "event" key and are dropped.
func (el *EventListener) processEvent(line []byte) {
	var event map[string]any
	if err := json.Unmarshal(line, &event); err != nil {
		return
	}

	eventType, ok := event["event"].(string)
	if !ok || el.callback == nil {
		return
	}

	if eventType == "property-change" {
		if name, _ := event["name"].(string); name != "" {
			el.callback(name, event["data"])
		}
		return
	}

	el.callback(eventType, event)
}
