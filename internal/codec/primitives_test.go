package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteSintSmallestFit(t *testing.T) {
	tests := []struct {
		name string
		v    int32
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"pfix_max", 127, []byte{0x7f}},
		{"negative_fixint_min", -32, []byte{0xe0}},
		{"negative_fixint_max", -1, []byte{0xff}},
		{"int8", -100, []byte{0xd0, 0x9c}},
		{"int16", 1000, []byte{0xd1, 0x03, 0xe8}},
		{"int32", 70000, []byte{0xd2, 0x00, 0x01, 0x11, 0x70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeSint(nil, tt.v)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("writeSint(%d) mismatch (-want +got):\n%s", tt.v, diff)
			}
		})
	}
}

func TestReadIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, 127, -1, -32, -33, 200, -129, 40000, -40000}
	for _, v := range values {
		buf := writeSint(nil, v)
		got, pos, err := readInt(buf, 0)
		if err != nil {
			t.Fatalf("readInt(%d) error = %v", v, err)
		}
		if pos != len(buf) {
			t.Errorf("readInt(%d) pos = %d, want %d", v, pos, len(buf))
		}
		if got != int64(v) {
			t.Errorf("readInt(%d) = %d, want %d", v, got, v)
		}
	}
}

func TestWriteStrSmallestFit(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want []byte
	}{
		{"empty", "", []byte{0xa0}},
		{"short", "abc", append([]byte{0xa3}, "abc"...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := writeStr(nil, tt.s)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("writeStr(%q) mismatch (-want +got):\n%s", tt.s, diff)
			}
		})
	}
}

func TestReadStrRejectsBadUTF8(t *testing.T) {
	buf := []byte{0xa2, 0xff, 0xfe}
	if _, _, err := readStr(buf, 0); err == nil {
		t.Error("readStr() on invalid UTF-8 = nil error, want error")
	}
}

func TestReadStrShortRead(t *testing.T) {
	buf := []byte{0xa5, 'a', 'b'} // claims length 5, only 2 bytes follow
	if _, _, err := readStr(buf, 0); err == nil {
		t.Error("readStr() on truncated buffer = nil error, want error")
	}
}

func TestBinRoundTrip(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}

	buf := writeBin(nil, payload)
	got, pos, err := readBin(buf, 0)
	if err != nil {
		t.Fatalf("readBin() error = %v", err)
	}
	if pos != len(buf) {
		t.Errorf("readBin() pos = %d, want %d", pos, len(buf))
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("readBin() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapLenRoundTrip(t *testing.T) {
	for _, n := range []int{0, 15, 16, 65535, 65536} {
		buf := writeMapLen(nil, n)
		got, pos, err := readMapLen(buf, 0)
		if err != nil {
			t.Fatalf("readMapLen(%d) error = %v", n, err)
		}
		if pos != len(buf) {
			t.Errorf("readMapLen(%d) pos = %d, want %d", n, pos, len(buf))
		}
		if got != n {
			t.Errorf("readMapLen(%d) = %d, want %d", n, got, n)
		}
	}
}
