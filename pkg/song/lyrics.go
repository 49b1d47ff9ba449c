package song

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// lineBreakGapSeconds starts a new lyric line when consecutive syllables
// are separated by a gap longer than this.
const lineBreakGapSeconds = 4.0

// lineHoldSeconds keeps a line active past its last syllable when no
// following line bounds it.
const lineHoldSeconds = 4.0

// LyricLine is a display line grouped from raw syllable events. A line is
// active for logical times in [StartTimeSeconds, EndTimeSeconds).
type LyricLine struct {
	Text             string
	StartTimeSeconds float64
	EndTimeSeconds   float64
	Syllables        []LyricEvent
}

// DecodeLyricText normalizes raw lyric bytes to UTF-8. Karaoke MIDI files
// commonly carry CP932 (Shift-JIS) lyric meta events; text that is already
// valid UTF-8 is returned unchanged.
func DecodeLyricText(raw string) string {
	if utf8.ValidString(raw) {
		return raw
	}
	decoded, _, err := transform.String(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return raw
	}
	return decoded
}

// isLineBreakMarker reports whether a syllable is a line-break control
// marker rather than singable text. "/" and "\" are the conventional
// karaoke line and page breaks.
func isLineBreakMarker(text string) bool {
	return text == "/" || text == "\\" || text == "\n" || text == "\r\n"
}

// GroupLyricLines groups raw syllable events into display lines. A new
// line starts at an explicit break marker or after a silence gap. Each
// line ends at the start of the next line, bounded by a hold window past
// its last syllable.
func GroupLyricLines(events []LyricEvent) []LyricLine {
	var lines []LyricLine
	var current []LyricEvent

	flush := func() {
		if len(current) == 0 {
			return
		}
		var text strings.Builder
		for _, ev := range current {
			text.WriteString(DecodeLyricText(ev.Text))
		}
		last := current[len(current)-1]
		lines = append(lines, LyricLine{
			Text:             strings.TrimSpace(text.String()),
			StartTimeSeconds: current[0].TimeSeconds,
			EndTimeSeconds:   last.TimeSeconds + lineHoldSeconds,
			Syllables:        current,
		})
		current = nil
	}

	for _, ev := range events {
		text := DecodeLyricText(ev.Text)
		if isLineBreakMarker(text) {
			flush()
			continue
		}
		if strings.HasPrefix(text, "\n") || strings.HasPrefix(text, "\r") {
			flush()
			text = strings.TrimLeft(text, "\r\n")
			if text == "" {
				continue
			}
			ev.Text = text
		}
		if len(current) > 0 && ev.TimeSeconds-current[len(current)-1].TimeSeconds > lineBreakGapSeconds {
			flush()
		}
		if strings.TrimSpace(text) == "" && len(current) == 0 {
			continue
		}
		current = append(current, ev)
	}
	flush()

	// A line never outlives the start of its successor.
	for i := 0; i+1 < len(lines); i++ {
		if lines[i].EndTimeSeconds > lines[i+1].StartTimeSeconds {
			lines[i].EndTimeSeconds = lines[i+1].StartTimeSeconds
		}
	}

	return lines
}

// ActiveLineIndex returns the index of the line whose interval contains
// tSeconds, or -1 when no line is active (before the first line, in a gap,
// or after the last line). The query is pure.
func ActiveLineIndex(lines []LyricLine, tSeconds float64) int {
	for i, line := range lines {
		if tSeconds >= line.StartTimeSeconds && tSeconds < line.EndTimeSeconds {
			return i
		}
	}
	return -1
}
