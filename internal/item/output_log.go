package item

import "strings"

// outputLog is an append-only, newline-normalized text stream.
type outputLog struct {
	buf          strings.Builder
	endedNewline bool // true once buf is empty or its last byte is '\n'
}

func newOutputLog() *outputLog {
	return &outputLog{endedNewline: true}
}

// append writes data (already UTF-8, invalid sequences already
// replaced) to the log. When fullLine is true the chunk is treated as
// a complete line: a newline is inserted before it if the previous
// chunk didn't end with one, and appended after it if the chunk itself
// doesn't end with one. When fullLine is false, data is appended
// verbatim (e.g. streaming partial subprocess output).
func (l *outputLog) append(data string, fullLine bool) {
	if data == "" {
		return
	}
	if fullLine && !l.endedNewline {
		l.buf.WriteByte('\n')
	}
	l.buf.WriteString(data)
	if fullLine && !strings.HasSuffix(data, "\n") {
		l.buf.WriteByte('\n')
		l.endedNewline = true
	} else {
		l.endedNewline = strings.HasSuffix(data, "\n")
	}
}

func (l *outputLog) String() string {
	return l.buf.String()
}
