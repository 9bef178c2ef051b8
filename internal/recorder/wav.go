package recorder

import "encoding/binary"

const wavHeaderSize = 44

// WAVFromPCM16Mono wraps little-endian s16 mono PCM in a RIFF header.
func WAVFromPCM16Mono(pcm []byte, sampleRate int) []byte {
	const blockAlign = 2
	byteRate := uint32(sampleRate) * blockAlign
	dataLen := uint32(len(pcm))
	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], 36+dataLen)
	copy(out[8:], "WAVE")

	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16) // chunk size
	binary.LittleEndian.PutUint16(out[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], byteRate)
	binary.LittleEndian.PutUint16(out[32:], blockAlign)
	binary.LittleEndian.PutUint16(out[34:], 16) // bits per sample

	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], dataLen)
	copy(out[wavHeaderSize:], pcm)
	return out
}
