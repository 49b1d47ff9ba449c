package app

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont resolves the SoundFont to load, in order:
// 1. The explicitly configured path
// 2. The default filename in the current directory
// 3. Any .sf2 file in the current directory
//
// Returns the empty string when nothing is found; the caller then runs
// without the synthesis path.
func findSoundFont(configured string) string {
	if configured != "" {
		return configured
	}

	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return DefaultSoundFontName
	}

	entries, err := os.ReadDir(".")
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".sf2") {
			return e.Name()
		}
	}
	return ""
}
