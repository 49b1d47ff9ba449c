// Package output binds the playback engine to physical MIDI transports
// via gomidi. It provides a port-backed sink and a hot-plug watcher that
// rebinds the engine when the piano's port appears or disappears.
package output

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register the rtmidi driver
)

// ErrNoPort is returned when no MIDI output port matches the requested
// name.
var ErrNoPort = errors.New("no matching MIDI output port")

// excludedPortPatterns are virtual/system ports that are never
// auto-selected.
var excludedPortPatterns = []string{"Midi Through", "Through Port", "Dummy"}

// PortSink adapts a gomidi output port to the engine's raw 3-byte sink
// contract.
type PortSink struct {
	name string
	send func(midi.Message) error
	stop func()
}

// OpenPort opens the first MIDI output port whose name contains
// nameFilter (case-insensitive). An empty filter picks the first
// non-excluded port.
func OpenPort(nameFilter string) (*PortSink, error) {
	name, ok := findPortName(ListPorts(), nameFilter)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoPort, nameFilter)
	}

	port, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find output port %s: %w", name, err)
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("failed to open output port %s: %w", name, err)
	}

	return &PortSink{
		name: name,
		send: send,
		stop: func() { port.Close() },
	}, nil
}

// Send writes one raw 3-byte message to the port.
func (ps *PortSink) Send(msg [3]byte) error {
	return ps.send(midi.Message(msg[:]))
}

// Close closes the underlying port.
func (ps *PortSink) Close() error {
	if ps.stop != nil {
		ps.stop()
		ps.stop = nil
	}
	return nil
}

// String returns the port name.
func (ps *PortSink) String() string {
	return ps.name
}

// ListPorts returns the names of all available MIDI output ports,
// excluding virtual system ports.
func ListPorts() []string {
	var names []string
	for _, port := range midi.GetOutPorts() {
		name := port.String()
		if isExcluded(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func isExcluded(name string) bool {
	for _, pat := range excludedPortPatterns {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

// findPortName picks the first port matching the filter, or the first
// port at all when the filter is empty.
func findPortName(names []string, filter string) (string, bool) {
	if filter == "" {
		if len(names) == 0 {
			return "", false
		}
		return names[0], true
	}
	for _, name := range names {
		if containsCI(name, filter) {
			return name, true
		}
	}
	return "", false
}

func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
