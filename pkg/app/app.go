// Package app wires the playback engine, the MIDI output watcher, the
// software synthesizer and the song catalog into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zurustar/pianola/pkg/catalog"
	"github.com/zurustar/pianola/pkg/cli"
	"github.com/zurustar/pianola/pkg/logger"
	"github.com/zurustar/pianola/pkg/output"
	"github.com/zurustar/pianola/pkg/player"
	"github.com/zurustar/pianola/pkg/song"
	"github.com/zurustar/pianola/pkg/synth"
)

// Application manages the application main logic.
type Application struct {
	config *cli.Config
	log    *slog.Logger

	bus    *player.Bus
	sink   *player.SwitchableSink
	engine *player.Player
	synth  *synth.Synth
	cat    *catalog.Catalog
}

// New creates an Application.
func New() *Application {
	return &Application{}
}

// Run executes the application.
func (app *Application) Run(args []string) error {
	// 1. Parse command line arguments.
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. Initialize the logger.
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("application started")

	// 3. Resolve the song to play, from the positional argument or the
	// catalog's request queue.
	s, singer, err := app.resolveSong()
	if err != nil {
		return fmt.Errorf("failed to resolve song: %w", err)
	}
	defer app.closeCatalog()

	app.log.Info("song resolved", "song", s.Name, "singer", singer)

	// 4. Build the engine: event bus, switchable output sink, transport.
	app.bus = player.NewBus()
	app.sink = player.NewSwitchableSink(nil)
	app.engine = player.NewPlayer(app.bus, app.sink)
	defer app.engine.Close()
	defer app.sink.Close()

	// 5. Keep the sink bound to the physical port, following hot-plug.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher := output.NewWatcher(app.sink, app.config.PortName)
	go watcher.Run(ctx)

	// 6. Start the synthesis path unless running headless.
	if err := app.initSynth(); err != nil {
		return fmt.Errorf("failed to initialize synthesizer: %w", err)
	}
	if app.synth != nil {
		defer app.synth.Close()
	}

	// 7. Load and play.
	ended := make(chan struct{})
	app.bus.Subscribe(player.EventEnded, func(player.Event) {
		close(ended)
	})
	app.bus.Subscribe(player.EventLyrics, app.logLyrics)

	if err := app.engine.LoadSong(s, singer); err != nil {
		return fmt.Errorf("failed to load song: %w", err)
	}
	app.engine.SetAudioOffset(app.config.AudioOffset)
	app.engine.Play()

	select {
	case <-ended:
		app.log.Info("song finished")
	case <-ctx.Done():
		app.log.Info("interrupted, stopping playback")
		app.engine.Stop()
	}

	app.log.Info("application terminated normally")
	return nil
}

// parseArgs parses command line arguments.
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger initializes the logger.
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// resolveSong loads the song named on the command line, or pops the next
// request from the catalog when no path was given.
func (app *Application) resolveSong() (*song.Song, string, error) {
	if app.config.SongPath != "" {
		s, err := song.LoadFile(app.config.SongPath)
		if err != nil {
			return nil, "", err
		}
		return s, app.config.Singer, nil
	}

	if app.config.CatalogPath == "" {
		return nil, "", fmt.Errorf("no song file given and no catalog configured")
	}

	cat, err := catalog.Open(app.config.CatalogPath)
	if err != nil {
		return nil, "", err
	}
	app.cat = cat

	req, entry, err := cat.PopNextRequest()
	if err != nil {
		return nil, "", err
	}
	s, err := song.LoadFile(entry.Path)
	if err != nil {
		return nil, "", fmt.Errorf("loading queued song %s: %w", entry.Title, err)
	}

	singer := req.Singer
	if app.config.Singer != "" {
		singer = app.config.Singer
	}
	return s, singer, nil
}

// initSynth starts the SoundFont synthesis path when a SoundFont is
// available and headless mode is off.
func (app *Application) initSynth() error {
	if app.config.Headless {
		app.log.Info("headless mode: audio synthesis disabled")
		return nil
	}

	sfPath := findSoundFont(app.config.SoundFontPath)
	if sfPath == "" {
		app.log.Warn("no SoundFont found, audio synthesis disabled")
		return nil
	}

	s, err := synth.New(sfPath)
	if err != nil {
		return err
	}
	s.Attach(app.bus)
	app.synth = s
	return nil
}

// logLyrics mirrors the projected lyric line to the log so a console run
// still shows the words being sung.
func (app *Application) logLyrics(ev player.Event) {
	if ev.LineIndex < 0 || ev.LineIndex >= len(ev.Lines) {
		return
	}
	app.log.Info("lyrics", "line", ev.Lines[ev.LineIndex].Text)
}

func (app *Application) closeCatalog() {
	if app.cat != nil {
		if err := app.cat.Close(); err != nil {
			app.log.Warn("failed to close catalog", "err", err)
		}
	}
}
