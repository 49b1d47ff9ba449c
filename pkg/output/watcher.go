package output

import (
	"context"
	"log/slog"
	"time"

	"github.com/zurustar/pianola/pkg/logger"
	"github.com/zurustar/pianola/pkg/player"
)

// rescanInterval is the cadence of output-port rescans.
const rescanInterval = time.Second

// Watcher monitors available MIDI output ports and keeps the engine's
// switchable sink bound to the preferred one. It handles hot-plug (port
// appears) and hot-unplug (port disappears) transparently; while a
// rebind is in flight the switchable sink drops sends instead of
// blocking the tick loop.
type Watcher struct {
	log        *slog.Logger
	sink       *player.SwitchableSink
	nameFilter string

	connected    bool
	selectedName string
}

// NewWatcher creates a watcher that keeps sink bound to the first port
// matching nameFilter.
func NewWatcher(sink *player.SwitchableSink, nameFilter string) *Watcher {
	return &Watcher{
		log:        logger.GetLogger(),
		sink:       sink,
		nameFilter: nameFilter,
	}
}

// Run polls for port changes until the context is cancelled. It performs
// an initial scan immediately. Blocking; run in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

// Connected reports whether a port is currently bound.
func (w *Watcher) Connected() bool {
	return w.connected
}

func (w *Watcher) scan() {
	names := ListPorts()

	if w.connected {
		for _, n := range names {
			if n == w.selectedName {
				return // still there, nothing to do
			}
		}
		// Port disappeared; unbind so sends degrade to silent drops.
		w.log.Warn("output port disappeared", "port", w.selectedName)
		w.connected = false
		w.selectedName = ""
		if err := w.sink.Swap(nil); err != nil {
			w.log.Error("failed to unbind output port", "err", err)
		}
		return
	}

	name, ok := findPortName(names, w.nameFilter)
	if !ok {
		return
	}
	err := w.sink.Swap(func() (player.Sink, error) {
		return OpenPort(name)
	})
	if err != nil {
		w.log.Error("failed to bind output port", "port", name, "err", err)
		return
	}
	w.connected = true
	w.selectedName = name
	w.log.Info("output port bound", "port", name)
}
