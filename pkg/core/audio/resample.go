package audio

// Resample converts little-endian PCM16 between sample rates by linear
// interpolation. Good enough for speech headed to a narrowband phone line;
// callers wanting hi-fi should resample upstream.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return pcm
	}
	in := len(pcm) / 2
	if in == 0 {
		return nil
	}
	out := int(int64(in) * int64(toRate) / int64(fromRate))
	if out == 0 {
		return nil
	}
	res := make([]byte, out*2)
	for i := 0; i < out; i++ {
		pos := float64(i) * float64(fromRate) / float64(toRate)
		j := int(pos)
		frac := pos - float64(j)
		s0 := sampleAt(pcm, j)
		s1 := s0
		if j+1 < in {
			s1 = sampleAt(pcm, j+1)
		}
		v := int16(float64(s0) + frac*float64(s1-s0))
		res[i*2] = byte(v)
		res[i*2+1] = byte(uint16(v) >> 8)
	}
	return res
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
}
