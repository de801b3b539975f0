package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DefaultSampleRate is the telephony narrowband rate used on the wire.
const DefaultSampleRate = 8000

const wavHeaderSize = 44

type wavHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// EncodeWAV wraps raw little-endian PCM16 in a 44-byte RIFF/WAVE header,
// mono, 16 bits per sample.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      uint32(wavHeaderSize - 8 + len(pcm)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(pcm)),
	}
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	binary.Write(buf, binary.LittleEndian, h)
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAV strips the RIFF/WAVE header from a mono PCM16 file and returns
// the raw samples and their rate. Only the canonical 44-byte framing written
// by EncodeWAV and by common synthesis services is accepted.
func DecodeWAV(data []byte) (pcm []byte, sampleRate int, err error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav: %d bytes is shorter than a header", len(data))
	}
	var h wavHeader
	if err := binary.Read(bytes.NewReader(data[:wavHeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, 0, fmt.Errorf("wav: read header: %w", err)
	}
	if h.RIFF != [4]byte{'R', 'I', 'F', 'F'} || h.WAVE != [4]byte{'W', 'A', 'V', 'E'} {
		return nil, 0, fmt.Errorf("wav: not a RIFF/WAVE file")
	}
	if h.AudioFormat != 1 || h.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("wav: unsupported format %d/%d-bit", h.AudioFormat, h.BitsPerSample)
	}
	if h.NumChannels != 1 {
		return nil, 0, fmt.Errorf("wav: %d channels, want mono", h.NumChannels)
	}
	body := data[wavHeaderSize:]
	n := int(h.DataSize)
	if n > len(body) {
		n = len(body)
	}
	return body[:n], int(h.SampleRate), nil
}
