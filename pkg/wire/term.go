package wire

// Line is one complete terminal-mode input line.
// Command lines were introduced by an escape byte; anything else is
// converse data destined for the current channel.
type Line struct {
	Command bool
	Text    []byte
}

// TermDecoder incrementally decodes terminal-mode lines from an
// unaligned byte stream. The escape byte is honoured wherever it appears,
// not only at line boundaries: it discards the pending line and turns the
// input into command entry. Cancel discards the pending line. A carriage
// return completes the line and drops back to converse entry.
type TermDecoder struct {
	line    []byte
	command bool
}

// Decode consumes p and returns all lines completed by it
func (d *TermDecoder) Decode(p []byte) []Line {
	var lines []Line
	for _, c := range p {
		switch c {
		case TermESC:
			d.command = true
			d.line = d.line[:0]

		case TermCAN:
			d.line = d.line[:0]

		case TermCR:
			text := make([]byte, len(d.line))
			copy(text, d.line)
			lines = append(lines, Line{Command: d.command, Text: text})
			d.line = d.line[:0]
			d.command = false

		default:
			d.line = append(d.line, c)
		}
	}
	return lines
}

// Reset discards the pending line and returns to converse entry.
// Called when the transport stream is lost or replaced.
func (d *TermDecoder) Reset() {
	d.line = nil
	d.command = false
}

// EncodeLine builds a terminal-mode response line
func EncodeLine(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+2)
	out = append(out, msg...)
	return append(out, '\r', '\n')
}
