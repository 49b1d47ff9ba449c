package cli

import (
	"testing"
	"time"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "defaults",
			args: []string{},
			expected: Config{
				SongPath:    "",
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "info",
				Headless:    false,
				ShowHelp:    false,
			},
		},
		{
			name: "song path",
			args: []string{"/path/to/song.json"},
			expected: Config{
				SongPath:    "/path/to/song.json",
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "info",
			},
		},
		{
			name: "offset",
			args: []string{"--offset", "350"},
			expected: Config{
				AudioOffset: 350 * time.Millisecond,
				LogLevel:    "info",
			},
		},
		{
			name: "zero offset",
			args: []string{"--offset", "0"},
			expected: Config{
				AudioOffset: 0,
				LogLevel:    "info",
			},
		},
		{
			name: "log level",
			args: []string{"--log-level", "debug"},
			expected: Config{
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "debug",
			},
		},
		{
			name: "log level shorthand",
			args: []string{"-l", "error"},
			expected: Config{
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "error",
			},
		},
		{
			name: "headless",
			args: []string{"--headless"},
			expected: Config{
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "info",
				Headless:    true,
			},
		},
		{
			name: "help",
			args: []string{"--help"},
			expected: Config{
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "info",
				ShowHelp:    true,
			},
		},
		{
			name: "port and soundfont",
			args: []string{"-p", "Disklavier", "--soundfont", "FluidR3.sf2"},
			expected: Config{
				PortName:      "Disklavier",
				SoundFontPath: "FluidR3.sf2",
				AudioOffset:   500 * time.Millisecond,
				LogLevel:      "info",
			},
		},
		{
			name: "catalog and singer",
			args: []string{"--catalog", "songs.db", "--singer", "Alex"},
			expected: Config{
				CatalogPath: "songs.db",
				Singer:      "Alex",
				AudioOffset: 500 * time.Millisecond,
				LogLevel:    "info",
			},
		},
		{
			name: "flags after positional argument",
			args: []string{"song.json", "--offset", "100", "--headless"},
			expected: Config{
				SongPath:    "song.json",
				AudioOffset: 100 * time.Millisecond,
				LogLevel:    "info",
				Headless:    true,
			},
		},
		{
			name: "flags around positional argument",
			args: []string{"-l", "debug", "song.json", "--offset", "250"},
			expected: Config{
				SongPath:    "song.json",
				AudioOffset: 250 * time.Millisecond,
				LogLevel:    "debug",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.SongPath != tt.expected.SongPath {
				t.Errorf("SongPath = %q, want %q", config.SongPath, tt.expected.SongPath)
			}
			if config.PortName != tt.expected.PortName {
				t.Errorf("PortName = %q, want %q", config.PortName, tt.expected.PortName)
			}
			if config.SoundFontPath != tt.expected.SoundFontPath {
				t.Errorf("SoundFontPath = %q, want %q", config.SoundFontPath, tt.expected.SoundFontPath)
			}
			if config.CatalogPath != tt.expected.CatalogPath {
				t.Errorf("CatalogPath = %q, want %q", config.CatalogPath, tt.expected.CatalogPath)
			}
			if config.Singer != tt.expected.Singer {
				t.Errorf("Singer = %q, want %q", config.Singer, tt.expected.Singer)
			}
			if config.AudioOffset != tt.expected.AudioOffset {
				t.Errorf("AudioOffset = %v, want %v", config.AudioOffset, tt.expected.AudioOffset)
			}
			if config.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.expected.LogLevel)
			}
			if config.Headless != tt.expected.Headless {
				t.Errorf("Headless = %v, want %v", config.Headless, tt.expected.Headless)
			}
			if config.ShowHelp != tt.expected.ShowHelp {
				t.Errorf("ShowHelp = %v, want %v", config.ShowHelp, tt.expected.ShowHelp)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "negative offset",
			args: []string{"--offset", "-100"},
		},
		{
			name: "invalid log level",
			args: []string{"--log-level", "invalid"},
		},
		{
			name: "invalid log level shorthand",
			args: []string{"-l", "trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
