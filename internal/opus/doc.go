// Package opus connects libopus and Ogg/Opus media to the voice bridge.
//
// Codec implements voice.Codec on top of libopus. The rest of the package
// feeds local audio into a session: Transcode runs FFmpeg to turn any input
// into an Ogg/Opus stream, PacketReader extracts the Opus packets from it,
// PCMReader decodes them into 20ms mono frames and Play pushes those frames
// at real-time pace.
package opus
