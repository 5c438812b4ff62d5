package wire

import (
	"bytes"
	"testing"
)

// TestTermDecoder_Lines tests line completion and escape handling
func TestTermDecoder_Lines(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []Line
	}{
		{
			name:  "Converse line",
			input: []byte("hello\r"),
			want:  []Line{{Command: false, Text: []byte("hello")}},
		},
		{
			name:  "Command line",
			input: []byte{TermESC, 'L', TermCR},
			want:  []Line{{Command: true, Text: []byte("L")}},
		},
		{
			name:  "Empty line",
			input: []byte{TermCR},
			want:  []Line{{Command: false, Text: []byte{}}},
		},
		{
			name:  "Escape mid-line discards pending bytes",
			input: append([]byte("par"), TermESC, 'D', TermCR),
			want:  []Line{{Command: true, Text: []byte("D")}},
		},
		{
			name:  "Cancel clears the line without changing entry mode",
			input: append(append([]byte{TermESC}, "LX"...), TermCAN, 'L', TermCR),
			want:  []Line{{Command: true, Text: []byte("L")}},
		},
		{
			name:  "Command entry resets after completion",
			input: append(append([]byte{TermESC}, "S2\r"...), "data\r"...),
			want: []Line{
				{Command: true, Text: []byte("S2")},
				{Command: false, Text: []byte("data")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d TermDecoder
			got := d.Decode(tt.input)

			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Command != tt.want[i].Command {
					t.Errorf("line %d: Command = %v, want %v", i, got[i].Command, tt.want[i].Command)
				}
				if !bytes.Equal(got[i].Text, tt.want[i].Text) {
					t.Errorf("line %d: Text = %q, want %q", i, got[i].Text, tt.want[i].Text)
				}
			}
		})
	}
}

// TestTermDecoder_SplitInput tests decoding across call boundaries
func TestTermDecoder_SplitInput(t *testing.T) {
	var d TermDecoder

	if got := d.Decode([]byte("he")); len(got) != 0 {
		t.Fatalf("partial line yielded %d lines", len(got))
	}
	if got := d.Decode([]byte("llo")); len(got) != 0 {
		t.Fatalf("partial line yielded %d lines", len(got))
	}
	got := d.Decode([]byte{TermCR})
	if len(got) != 1 || !bytes.Equal(got[0].Text, []byte("hello")) {
		t.Fatalf("got %v, want one line %q", got, "hello")
	}
}

// TestTermDecoder_Reset tests that Reset returns to converse entry
func TestTermDecoder_Reset(t *testing.T) {
	var d TermDecoder
	d.Decode(append([]byte{TermESC}, "JHO"...))
	d.Reset()

	got := d.Decode([]byte("data\r"))
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1", len(got))
	}
	if got[0].Command {
		t.Error("line after Reset should be converse data")
	}
	if !bytes.Equal(got[0].Text, []byte("data")) {
		t.Errorf("Text = %q, want %q", got[0].Text, "data")
	}
}

// TestEncodeLine tests terminal response framing
func TestEncodeLine(t *testing.T) {
	got := EncodeLine([]byte("ok"))
	if !bytes.Equal(got, []byte("ok\r\n")) {
		t.Errorf("got %q, want %q", got, "ok\r\n")
	}
}
