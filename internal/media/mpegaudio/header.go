package mpegaudio

import (
	"errors"
	"fmt"
)

// FrameHeader describes one parsed MPEG audio frame header.
type FrameHeader struct {
	Version     int // 1 or 2 (2 also covers MPEG 2.5)
	Layer       int // 1, 2, or 3
	BitrateKbps int
	SampleRate  int
	Padding     bool
}

var (
	// ErrNoFrame reports that no MPEG frame sync was found.
	ErrNoFrame = errors.New("no MPEG audio frame found")
	// ErrBadHeader reports a sync word followed by invalid header fields.
	ErrBadHeader = errors.New("invalid MPEG frame header")
)

// Bitrate tables in kbps, indexed by the 4-bit bitrate field. Index 0
// (free format) and 15 (reserved) are invalid for our purposes.
var bitrateV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var bitrateV1L2 = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0}
var bitrateV1L1 = [16]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0}
var bitrateV2L1 = [16]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0}
var bitrateV2L23 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

var sampleRatesV1 = [4]int{44100, 48000, 32000, 0}
var sampleRatesV2 = [4]int{22050, 24000, 16000, 0}
var sampleRatesV25 = [4]int{11025, 12000, 8000, 0}

// SkipID3v2 returns the offset of the first byte after a leading ID3v2
// tag, or 0 when the data does not start with one.
func SkipID3v2(data []byte) int {
	if len(data) < 10 || data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return 0
	}
	// Tag size is a 28-bit synchsafe integer following the 6-byte header.
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	end := 10 + size
	if end > len(data) {
		return len(data)
	}
	return end
}

// ParseHeader parses the 4-byte frame header at the start of data.
func ParseHeader(data []byte) (FrameHeader, error) {
	if len(data) < 4 {
		return FrameHeader{}, ErrNoFrame
	}
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return FrameHeader{}, ErrNoFrame
	}

	versionBits := (data[1] >> 3) & 0x03
	layerBits := (data[1] >> 1) & 0x03
	bitrateIdx := (data[2] >> 4) & 0x0F
	rateIdx := (data[2] >> 2) & 0x03
	padding := data[2]&0x02 != 0

	if versionBits == 0x01 || layerBits == 0x00 || bitrateIdx == 0 || bitrateIdx == 0x0F || rateIdx == 0x03 {
		return FrameHeader{}, ErrBadHeader
	}

	h := FrameHeader{Padding: padding}
	switch layerBits {
	case 0x03:
		h.Layer = 1
	case 0x02:
		h.Layer = 2
	case 0x01:
		h.Layer = 3
	}

	switch versionBits {
	case 0x03: // MPEG 1
		h.Version = 1
		h.SampleRate = sampleRatesV1[rateIdx]
		switch h.Layer {
		case 1:
			h.BitrateKbps = bitrateV1L1[bitrateIdx]
		case 2:
			h.BitrateKbps = bitrateV1L2[bitrateIdx]
		case 3:
			h.BitrateKbps = bitrateV1L3[bitrateIdx]
		}
	case 0x02: // MPEG 2
		h.Version = 2
		h.SampleRate = sampleRatesV2[rateIdx]
		if h.Layer == 1 {
			h.BitrateKbps = bitrateV2L1[bitrateIdx]
		} else {
			h.BitrateKbps = bitrateV2L23[bitrateIdx]
		}
	case 0x00: // MPEG 2.5
		h.Version = 2
		h.SampleRate = sampleRatesV25[rateIdx]
		if h.Layer == 1 {
			h.BitrateKbps = bitrateV2L1[bitrateIdx]
		} else {
			h.BitrateKbps = bitrateV2L23[bitrateIdx]
		}
	}

	if h.BitrateKbps == 0 || h.SampleRate == 0 {
		return FrameHeader{}, ErrBadHeader
	}
	return h, nil
}

// FrameLength returns the total byte length of the frame this header
// begins, including the header itself.
func (h FrameHeader) FrameLength() int {
	pad := 0
	if h.Padding {
		pad = 1
	}
	if h.Layer == 1 {
		return (12*h.BitrateKbps*1000/h.SampleRate + pad) * 4
	}
	samplesPerFrame := 144
	if h.Version == 2 && h.Layer == 3 {
		samplesPerFrame = 72
	}
	return samplesPerFrame*h.BitrateKbps*1000/h.SampleRate + pad
}

// FindFirstFrame scans data for a frame sync, parses the header, and
// confirms a second frame header follows at the computed offset. It
// returns the offset and header of the first frame. A trailing partial
// frame is accepted when the first frame reaches the end of data.
func FindFirstFrame(data []byte) (int, FrameHeader, error) {
	start := SkipID3v2(data)
	for i := start; i+4 <= len(data); i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}
		h, err := ParseHeader(data[i:])
		if err != nil {
			continue
		}
		next := i + h.FrameLength()
		if next+4 <= len(data) {
			if _, err := ParseHeader(data[next:]); err != nil {
				continue
			}
		} else if next > len(data) {
			continue
		}
		return i, h, nil
	}
	return 0, FrameHeader{}, fmt.Errorf("%w after offset %d", ErrNoFrame, start)
}

// EstimateDuration estimates playback seconds from the first frame's
// bitrate over the audio payload length (total bytes minus any leading
// tag). Constant bitrate is assumed, which matches how the catalog uses
// the figure: a comparison signal, not an exact decode.
func EstimateDuration(data []byte) (seconds int, bitrateKbps int, err error) {
	offset, h, err := FindFirstFrame(data)
	if err != nil {
		return 0, 0, err
	}
	payload := len(data) - offset
	if payload <= 0 {
		return 0, h.BitrateKbps, nil
	}
	return payload * 8 / (h.BitrateKbps * 1000), h.BitrateKbps, nil
}
