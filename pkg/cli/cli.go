// Package cli parses command line arguments and environment variables
// into the pianola runtime configuration.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings parsed from command line arguments.
type Config struct {
	SongPath      string        // Path to a parsed-song JSON file (positional argument)
	PortName      string        // Substring match for the physical MIDI output port
	SoundFontPath string        // SoundFont (.sf2) for the software synthesis path
	CatalogPath   string        // SQLite song catalog database path (empty disables the catalog)
	Singer        string        // Name of the current singer, attached to state snapshots
	AudioOffset   time.Duration // Delay applied to the synth/lyrics path (mechanical latency compensation)
	LogLevel      string        // Log level (debug, info, warn, error)
	Headless      bool          // No audio synthesis, physical output only
	ShowHelp      bool          // Help flag
}

// DefaultAudioOffsetMs is the default synth/lyrics delay in milliseconds.
const DefaultAudioOffsetMs = 500

// ParseArgs parses command line arguments and returns a Config.
// Flags may appear before or after the positional song path argument.
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("pianola", flag.ContinueOnError)

	config := &Config{}

	var offsetMs int
	fs.StringVar(&config.PortName, "port", "", "MIDI output port name (substring match)")
	fs.StringVar(&config.PortName, "p", "", "MIDI output port name (shorthand)")
	fs.StringVar(&config.SoundFontPath, "soundfont", "", "SoundFont file for the synthesis path")
	fs.StringVar(&config.CatalogPath, "catalog", "", "SQLite song catalog path")
	fs.StringVar(&config.Singer, "singer", "", "name of the current singer")
	fs.IntVar(&offsetMs, "offset", DefaultAudioOffsetMs, "audio/physical sync offset in milliseconds")
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (shorthand)")
	fs.BoolVar(&config.Headless, "headless", false, "disable audio synthesis")
	fs.BoolVar(&config.ShowHelp, "help", false, "show help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show help (shorthand)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// Environment variables, command line flags take precedence.
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if offsetMs == DefaultAudioOffsetMs {
		if offsetEnv := os.Getenv("AUDIO_OFFSET_MS"); offsetEnv != "" {
			if v, err := strconv.Atoi(offsetEnv); err == nil && v >= 0 {
				offsetMs = v
			}
		}
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if offsetMs < 0 {
		return nil, fmt.Errorf("audio offset must be non-negative, got %d", offsetMs)
	}
	config.AudioOffset = time.Duration(offsetMs) * time.Millisecond

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// Positional argument: the parsed-song file.
	if fs.NArg() > 0 {
		config.SongPath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs rearranges arguments so flags come first and positional
// arguments last, letting callers mix the two freely.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	boolFlags := map[string]bool{
		"-h": true, "--help": true, "-help": true,
		"--headless": true, "-headless": true,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// A following non-flag token is this flag's value, unless the
			// flag is boolean.
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if !boolFlags[arg] {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp writes the usage message to stdout.
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `pianola - self-playing piano playback engine

Usage:
  pianola [options] [song-file]

Arguments:
  song-file     Parsed-song JSON file to play (omit to pull from the catalog queue)

Options:
  -p, --port <name>           MIDI output port for the physical piano (substring match)
  --soundfont <file>          SoundFont (.sf2) enabling the software synthesis path
  --catalog <file>            SQLite song catalog database
  --singer <name>             Singer name attached to playback state snapshots
  --offset <ms>               Audio/physical sync offset in milliseconds (default: 500)
  -l, --log-level <level>     Log level: debug, info, warn, error (default: info)
  --headless                  Physical output only, no audio synthesis
  -h, --help                  Show this help

Environment Variables:
  HEADLESS=1                  Enable headless mode
  AUDIO_OFFSET_MS=<ms>        Audio/physical sync offset
  LOG_LEVEL=<level>           Log level

Examples:
  pianola song.json                         Play to the first detected MIDI port
  pianola -p "Disklavier" song.json         Play to a named piano port
  pianola --soundfont FluidR3.sf2 song.json Synthesize audio alongside the piano
  pianola --offset 350 song.json            Tighter mechanical latency compensation
  pianola --catalog songs.db                Play the next queued request
`)
}
