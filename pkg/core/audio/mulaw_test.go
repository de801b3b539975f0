package audio

import (
	"testing"
	"time"
)

func TestMulawRoundTrip(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		got := MulawEncode(MulawDecode(b))
		want := b
		if b == 0x7F {
			// negative zero collapses onto positive zero
			want = 0xFF
		}
		if got != want {
			t.Fatalf("encode(decode(%#02x)) = %#02x, want %#02x", b, got, want)
		}
	}
}

func TestMulawDecodeKnownValues(t *testing.T) {
	cases := []struct {
		in   byte
		want int16
	}{
		{0xFF, 0},
		{0x7F, 0},
		{0x80, 32124},
		{0x00, -32124},
		{0xFE, 8},
		{0x7E, -8},
	}
	for _, c := range cases {
		if got := MulawDecode(c.in); got != c.want {
			t.Fatalf("MulawDecode(%#02x) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMulawEncodeClipping(t *testing.T) {
	if got := MulawEncode(32767); got != MulawEncode(mulawClip) {
		t.Fatalf("positive clip: got %#02x, want %#02x", got, MulawEncode(mulawClip))
	}
	if got := MulawEncode(-32768); got != MulawEncode(-mulawClip) {
		t.Fatalf("negative clip: got %#02x, want %#02x", got, MulawEncode(-mulawClip))
	}
}

func TestMulawEncodeMonotoneSign(t *testing.T) {
	if MulawEncode(1000)&0x80 == 0 {
		t.Fatal("positive sample lost its sign bit")
	}
	if MulawEncode(-1000)&0x80 != 0 {
		t.Fatal("negative sample lost its sign bit")
	}
}

func TestMulawBytesRoundTrip(t *testing.T) {
	in := []byte{0x00, 0x13, 0x7E, 0x80, 0xAB, 0xFF}
	pcm := MulawDecodeBytes(in)
	if len(pcm) != len(in)*2 {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(in)*2)
	}
	out := MulawEncodeBytes(pcm)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("byte %d: got %#02x, want %#02x", i, out[i], in[i])
		}
	}
}

func TestMulawEncodeBytesOddTail(t *testing.T) {
	if got := MulawEncodeBytes([]byte{0, 0, 0}); len(got) != 1 {
		t.Fatalf("got %d bytes, want 1", len(got))
	}
}

func TestDurations(t *testing.T) {
	if got := MulawDuration(8000, 8000); got != time.Second {
		t.Fatalf("MulawDuration = %v, want 1s", got)
	}
	if got := PCMDuration(16000, 8000); got != time.Second {
		t.Fatalf("PCMDuration = %v, want 1s", got)
	}
	if got := MulawDuration(160, 8000); got != 20*time.Millisecond {
		t.Fatalf("one frame = %v, want 20ms", got)
	}
	if got := MulawDuration(100, 0); got != 0 {
		t.Fatalf("zero rate = %v, want 0", got)
	}
}
