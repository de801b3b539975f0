// Package audio provides the telephony audio primitives used by the
// receptionist gateway: G.711 μ-law compression, 16-bit linear PCM helpers,
// and WAV container framing.
package audio

import "time"

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// MulawDecode expands one μ-law byte to a 16-bit linear PCM sample.
func MulawDecode(u byte) int16 {
	u = ^u
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F
	magnitude := ((int32(mantissa) << 3) + mulawBias) << exponent
	if u&0x80 != 0 {
		return int16(mulawBias - magnitude)
	}
	return int16(magnitude - mulawBias)
}

// MulawEncode compresses a 16-bit linear PCM sample to one μ-law byte.
// The curve is a bijection with MulawDecode for every code except 0x7F
// (negative zero), which decodes to 0 and therefore re-encodes as 0xFF.
func MulawEncode(sample int16) byte {
	s := int32(sample)
	var sign byte
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); mask > 0x00FF && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(s>>(exponent+3)) & 0x0F
	return ^(sign | exponent<<4 | mantissa)
}

// MulawDecodeBytes expands a μ-law buffer to little-endian PCM16 bytes.
func MulawDecodeBytes(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, b := range data {
		s := MulawDecode(b)
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// MulawEncodeBytes compresses little-endian PCM16 bytes to μ-law. A trailing
// odd byte is dropped.
func MulawEncodeBytes(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = MulawEncode(s)
	}
	return out
}

// MulawDuration reports the playback time of a μ-law buffer, one byte per
// sample.
func MulawDuration(nbytes, sampleRate int) time.Duration {
	if sampleRate <= 0 || nbytes <= 0 {
		return 0
	}
	return time.Duration(nbytes) * time.Second / time.Duration(sampleRate)
}

// PCMDuration reports the playback time of a PCM16 buffer, two bytes per
// sample.
func PCMDuration(nbytes, sampleRate int) time.Duration {
	return MulawDuration(nbytes/2, sampleRate)
}
