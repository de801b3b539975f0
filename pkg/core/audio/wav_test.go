package audio

import (
	"bytes"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x02}, 100)
	wav := EncodeWAV(pcm, DefaultSampleRate)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad magic: %q %q", wav[0:4], wav[8:12])
	}
	if string(wav[36:40]) != "data" {
		t.Fatalf("bad data chunk id: %q", wav[36:40])
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Fatal("payload does not follow header verbatim")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := []byte{0, 0, 0x34, 0x12, 0xCC, 0xED}
	got, rate, err := DecodeWAV(EncodeWAV(pcm, 16000))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("rate = %d, want 16000", rate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm = %x, want %x", got, pcm)
	}
}

func TestDecodeWAVRejects(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("too short")); err == nil {
		t.Fatal("short buffer accepted")
	}
	junk := make([]byte, 64)
	if _, _, err := DecodeWAV(junk); err == nil {
		t.Fatal("zeroed header accepted")
	}
	stereo := EncodeWAV([]byte{0, 0, 0, 0}, 8000)
	stereo[22] = 2
	if _, _, err := DecodeWAV(stereo); err == nil {
		t.Fatal("stereo accepted")
	}
}

func TestDecodeWAVTruncatedData(t *testing.T) {
	wav := EncodeWAV(make([]byte, 10), 8000)
	got, _, err := DecodeWAV(wav[:48])
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d bytes, want the 4 that survived truncation", len(got))
	}
}
