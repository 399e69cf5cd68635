package agent

import (
	"regexp"
	"strings"
)

var clockTime = regexp.MustCompile(`(\d{1,2}):00(\s*([AaPp])\.?[Mm]\.?)?`)

// VoiceFriendlyTimes drops ":00" from whole-hour clock times so that text
// reads naturally when spoken: "9:00 AM" becomes "9 AM" and "14:00" becomes
// "14". Times embedded in timestamps such as 2025-01-02T09:00:00 are left
// alone.
func VoiceFriendlyTimes(text string) string {
	matches := clockTime.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !standalone(text, start, m[3]) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(text[m[2]:m[3]])
		if m[6] >= 0 {
			b.WriteString(" " + strings.ToUpper(text[m[6]:m[7]]) + "M")
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// standalone reports whether the clock time at text[start:] is not part of a
// longer number or timestamp. hourEnd is the index of the colon.
func standalone(text string, start, hourEnd int) bool {
	if start > 0 {
		switch c := text[start-1]; {
		case c >= '0' && c <= '9', c == 'T', c == ':', c == '-', c == '+', c == '.':
			return false
		}
	}
	after := hourEnd + len(":00")
	if after >= len(text) {
		return true
	}
	switch c := text[after]; {
	case c >= '0' && c <= '9', c == ':':
		return false
	case c == '.':
		// A fraction, not the end of a sentence.
		return after+1 >= len(text) || text[after+1] < '0' || text[after+1] > '9'
	}
	return true
}
