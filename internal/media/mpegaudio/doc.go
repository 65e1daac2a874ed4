// Package mpegaudio parses MPEG audio frame headers.
//
// The validator uses it to confirm a byte stream really contains MPEG
// audio frames, and the fingerprinter uses the first frame's bitrate to
// estimate duration and quality for files without explicit duration
// metadata. Only the frame header format is implemented; no audio
// decoding happens here.
package mpegaudio
