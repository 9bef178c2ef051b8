// Package voice bridges a host application to a live voice chat session.
//
// A Client owns at most one session at a time. Connect spawns a control loop
// that multiplexes three sources: commands from the host (PushFrame,
// Disconnect), a 20ms ticker driving the Mixer, and the Session's event
// stream. The host never touches the Session directly and never blocks on
// network I/O outside of Connect and Disconnect.
//
// Outbound audio is little-endian signed 16-bit mono PCM at 48kHz. It is cut
// into 960-sample windows, the last one zero padded, and each window is
// encoded into one packet.
//
// Inbound audio is reordered per speaker, decoded to stereo, downmixed and
// summed. Every tick yields one "audioMixed" event and one "audioSpeaker"
// event per audible participant. Lifecycle and error reports are delivered as
// NativeEvent values through a Bridge, which drops events rather than block
// when the host callback falls behind.
package voice
