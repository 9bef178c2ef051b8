package voice

import (
	"encoding/base64"
	"fmt"
)

// DecodeBase64PCM decodes the pcm field of an audio event.
func DecodeBase64PCM(s string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PCM: %w", err)
	}
	return pcm, nil
}

func EncodeBase64PCM(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}
