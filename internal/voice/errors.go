package voice

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArg   = errors.New("invalid argument")
	ErrNotConnected = fmt.Errorf("%w: not connected", ErrInvalidArg)
	ErrOddLength    = fmt.Errorf("%w: PCM buffer size must be divisible by 2", ErrInvalidArg)
	ErrNoAddress    = fmt.Errorf("%w: address is required", ErrInvalidArg)

	ErrAlreadyActive    = errors.New("already connected or connecting")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrBackpressure     = errors.New("audio queue is full or closed; keep push cadence near 20ms")
	ErrWorkerExited     = errors.New("connection worker exited before reporting status")
	ErrWorkerNotRunning = errors.New("connection worker is not running")

	ErrDisconnectInterrupted = errors.New("disconnect was interrupted")
	ErrDisconnectTimeout     = errors.New("timed out while waiting for graceful disconnect")
	ErrDisconnectedEarly     = errors.New("disconnected before connected")
)

// Error codes carried by "error" events.
const (
	CodeConnect           = "E_CONNECT"
	CodeAudioEncode       = "E_AUDIO_ENCODE"
	CodeSendAudio         = "E_SEND_AUDIO"
	CodeDisconnect        = "E_DISCONNECT"
	CodeDisconnectTimeout = "E_DISCONNECT_TIMEOUT"
	CodeStream            = "E_STREAM"
	CodeAudioDecode       = "E_AUDIO_DECODE"
)
