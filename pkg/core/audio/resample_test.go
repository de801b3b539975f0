package audio

import "testing"

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func TestResampleIdentity(t *testing.T) {
	in := pcm16(1, 2, 3)
	if got := Resample(in, 8000, 8000); &got[0] != &in[0] {
		t.Fatal("same-rate resample should pass the buffer through")
	}
}

func TestResampleDownsampleLength(t *testing.T) {
	in := pcm16(make([]int16, 240)...)
	got := Resample(in, 24000, 8000)
	if len(got) != 80*2 {
		t.Fatalf("len = %d samples, want 80", len(got)/2)
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	got := Resample(pcm16(0, 100), 8000, 16000)
	if len(got) != 4*2 {
		t.Fatalf("len = %d samples, want 4", len(got)/2)
	}
	if mid := sampleAt(got, 1); mid != 50 {
		t.Fatalf("interpolated sample = %d, want 50", mid)
	}
}

func TestResampleEmpty(t *testing.T) {
	if got := Resample(nil, 24000, 8000); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
