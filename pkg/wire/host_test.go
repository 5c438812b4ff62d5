package wire

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestHostDecoder_Complete tests decoding of complete units
func TestHostDecoder_Complete(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []Unit
	}{
		{
			name:  "Single command unit",
			input: []byte{0x00, 0x01, 0x01, 'G', '0'},
			want: []Unit{
				{Channel: 0, Kind: KindCommand, Payload: []byte("G0")},
			},
		},
		{
			name:  "Single data unit",
			input: []byte{0x02, 0x00, 0x04, 'H', 'e', 'l', 'l', 'o'},
			want: []Unit{
				{Channel: 2, Kind: KindData, Payload: []byte("Hello")},
			},
		},
		{
			name:  "Minimum payload of one byte",
			input: []byte{0x01, 0x01, 0x00, 'D'},
			want: []Unit{
				{Channel: 1, Kind: KindCommand, Payload: []byte("D")},
			},
		},
		{
			name: "Two back-to-back units",
			input: []byte{
				0x01, 0x01, 0x00, 'L',
				0x03, 0x00, 0x02, 'a', 'b', 'c',
			},
			want: []Unit{
				{Channel: 1, Kind: KindCommand, Payload: []byte("L")},
				{Channel: 3, Kind: KindData, Payload: []byte("abc")},
			},
		},
		{
			name:  "Nonzero kind byte is a command",
			input: []byte{0x01, 0xff, 0x00, 'G'},
			want: []Unit{
				{Channel: 1, Kind: KindCommand, Payload: []byte("G")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d HostDecoder
			got := d.Decode(tt.input)

			if len(got) != len(tt.want) {
				t.Fatalf("got %d units, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Channel != tt.want[i].Channel {
					t.Errorf("unit %d: Channel = %d, want %d", i, got[i].Channel, tt.want[i].Channel)
				}
				if got[i].Kind != tt.want[i].Kind {
					t.Errorf("unit %d: Kind = %v, want %v", i, got[i].Kind, tt.want[i].Kind)
				}
				if !bytes.Equal(got[i].Payload, tt.want[i].Payload) {
					t.Errorf("unit %d: Payload = %q, want %q", i, got[i].Payload, tt.want[i].Payload)
				}
			}
			if d.Pending() != 0 {
				t.Errorf("Pending() = %d, want 0", d.Pending())
			}
		})
	}
}

// TestHostDecoder_Partial tests that incomplete units are retained
func TestHostDecoder_Partial(t *testing.T) {
	var d HostDecoder

	if got := d.Decode([]byte{0x01, 0x01}); len(got) != 0 {
		t.Fatalf("incomplete header yielded %d units", len(got))
	}
	if got := d.Decode([]byte{0x02, 'C', ' '}); len(got) != 0 {
		t.Fatalf("incomplete payload yielded %d units", len(got))
	}
	got := d.Decode([]byte{'X'})
	if len(got) != 1 {
		t.Fatalf("got %d units, want 1", len(got))
	}
	if !bytes.Equal(got[0].Payload, []byte("C X")) {
		t.Errorf("Payload = %q, want %q", got[0].Payload, "C X")
	}
}

// TestHostDecoder_Reset tests that Reset drops a partial unit
func TestHostDecoder_Reset(t *testing.T) {
	var d HostDecoder
	d.Decode([]byte{0x01, 0x01, 0x05, 'p', 'a', 'r'})
	d.Reset()

	if d.Pending() != 0 {
		t.Fatalf("Pending() = %d after Reset, want 0", d.Pending())
	}

	got := d.Decode([]byte{0x00, 0x01, 0x00, 'G'})
	if len(got) != 1 || !bytes.Equal(got[0].Payload, []byte("G")) {
		t.Fatalf("decode after Reset = %v", got)
	}
}

// TestHostDecoder_ChunkIndependence verifies that decoding is invariant
// under arbitrary re-chunking of the byte stream.
func TestHostDecoder_ChunkIndependence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUnits := rapid.IntRange(1, 8).Draw(t, "units")

		var stream []byte
		var reference []Unit
		for i := 0; i < numUnits; i++ {
			u := Unit{
				Channel: rapid.IntRange(0, 255).Draw(t, "ch"),
				Kind:    Kind(rapid.IntRange(0, 1).Draw(t, "kind")),
				Payload: rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "payload"),
			}
			encoded, err := EncodeUnit(u)
			if err != nil {
				t.Fatalf("EncodeUnit: %v", err)
			}
			stream = append(stream, encoded...)
			reference = append(reference, u)
		}

		// Decode in one block
		var whole HostDecoder
		wholeUnits := whole.Decode(stream)

		// Decode in random chunks
		var chunked HostDecoder
		var chunkedUnits []Unit
		rest := stream
		for len(rest) > 0 {
			n := rapid.IntRange(1, len(rest)).Draw(t, "chunk")
			chunkedUnits = append(chunkedUnits, chunked.Decode(rest[:n])...)
			rest = rest[n:]
		}

		for _, got := range [][]Unit{wholeUnits, chunkedUnits} {
			if len(got) != len(reference) {
				t.Fatalf("got %d units, want %d", len(got), len(reference))
			}
			for i := range got {
				if got[i].Channel != reference[i].Channel ||
					got[i].Kind != reference[i].Kind ||
					!bytes.Equal(got[i].Payload, reference[i].Payload) {
					t.Fatalf("unit %d: got %v, want %v", i, got[i], reference[i])
				}
			}
		}
	})
}

// TestEncodeResponse tests the response byte layouts per condition
func TestEncodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		ch      int
		cond    Condition
		msg     []byte
		want    []byte
		wantErr bool
	}{
		{
			name: "OK short format",
			ch:   2,
			cond: CondOK,
			want: []byte{0x02, 0x00},
		},
		{
			name: "OK message null-terminated",
			ch:   1,
			cond: CondOKMsg,
			msg:  []byte("4"),
			want: []byte{0x01, 0x01, '4', 0x00},
		},
		{
			name: "Error message null-terminated",
			ch:   0,
			cond: CondErrMsg,
			msg:  []byte("INVALID COMMAND: X"),
			want: append(append([]byte{0x00, 0x02}, "INVALID COMMAND: X"...), 0x00),
		},
		{
			name: "Link status gains channel prefix",
			ch:   3,
			cond: CondLink,
			msg:  []byte("CONNECTED to EA4BAO"),
			want: append(append([]byte{0x03, 0x03}, "(3) CONNECTED to EA4BAO"...), 0x00),
		},
		{
			name: "Connected information byte-count format",
			ch:   2,
			cond: CondConInfo,
			msg:  []byte("CQ DE TEST"),
			want: append([]byte{0x02, 0x07, 0x09}, "CQ DE TEST"...),
		},
		{
			name: "Monitor info byte-count format",
			ch:   0,
			cond: CondMonInfo,
			msg:  []byte("x"),
			want: []byte{0x00, 0x06, 0x00, 'x'},
		},
		{
			name: "Monitor header null-terminated",
			ch:   0,
			cond: CondMonHdr,
			msg:  []byte("fm A to B ctl I pid F0"),
			want: append(append([]byte{0x00, 0x05}, "fm A to B ctl I pid F0"...), 0x00),
		},
		{
			name:    "Byte-count format rejects empty payload",
			ch:      1,
			cond:    CondConInfo,
			wantErr: true,
		},
		{
			name:    "Unknown condition",
			ch:      1,
			cond:    Condition(99),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeResponse(tt.ch, tt.cond, tt.msg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeResponse: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got % x, want % x", got, tt.want)
			}
		})
	}
}

// TestEncodeUnit_Limits tests payload length validation
func TestEncodeUnit_Limits(t *testing.T) {
	if _, err := EncodeUnit(Unit{Channel: 1, Kind: KindData}); err == nil {
		t.Error("empty payload should fail")
	}
	if _, err := EncodeUnit(Unit{Channel: 1, Kind: KindData, Payload: make([]byte, MaxPayload+1)}); err == nil {
		t.Error("oversized payload should fail")
	}

	encoded, err := EncodeUnit(Unit{Channel: 1, Kind: KindData, Payload: make([]byte, MaxPayload)})
	if err != nil {
		t.Fatalf("max payload should encode: %v", err)
	}
	if encoded[2] != 0xff {
		t.Errorf("length byte = %#x, want 0xff", encoded[2])
	}
}
