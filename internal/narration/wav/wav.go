// Package wav wraps raw PCM samples in a RIFF/WAVE container so that any
// standard decoder can play them.
package wav

import (
	"errors"
	"fmt"
)

// WAV format constants.
const (
	// HeaderSize is the size of a canonical WAV header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for linear PCM.
	FormatPCM = 1
)

// Narration PCM as produced by the generative voice provider: mono, 16-bit, 24 kHz.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

// ErrOddLength is returned when the PCM buffer is not a whole number of
// 16-bit samples.
var ErrOddLength = errors.New("wav: pcm length is not a whole number of 16-bit samples")

// Encode wraps mono 16-bit 24 kHz PCM in a 44-byte WAV header.
func Encode(pcm []byte) ([]byte, error) {
	if len(pcm)%(BitsPerSample/8) != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddLength, len(pcm))
	}
	return WrapRawPCM(pcm, SampleRate, Channels, BitsPerSample), nil
}

// WrapRawPCM prepends a WAV header describing pcm to a copy of it.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, HeaderSize, HeaderSize+dataSize)

	// RIFF chunk
	copy(out[0:4], "RIFF")
	PutLE32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	// fmt subchunk
	copy(out[12:16], "fmt ")
	PutLE32(out[16:20], 16)
	PutLE16(out[20:22], FormatPCM)
	PutLE16(out[22:24], uint16(channels))
	PutLE32(out[24:28], uint32(sampleRate))
	PutLE32(out[28:32], uint32(byteRate))
	PutLE16(out[32:34], uint16(blockAlign))
	PutLE16(out[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(out[36:40], "data")
	PutLE32(out[40:44], uint32(dataSize))

	return append(out, pcm...)
}

// PutLE16 writes v little-endian into b[0:2].
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes v little-endian into b[0:4].
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// LE32 reads a little-endian uint32 from b[0:4].
func LE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// LE16 reads a little-endian uint16 from b[0:2].
func LE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
