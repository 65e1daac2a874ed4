package testsupport

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"strconv"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
)

// AudioSpec describes the synthetic audio file a test needs.
type AudioSpec struct {
	Title           string
	Artist          string
	Album           string
	Genre           string
	Year            int
	DurationSeconds int
	Picture         []byte
}

// MP3 builds a structurally valid MP3: an ID3v2 tag followed by
// constant-bitrate MPEG-1 Layer III frames (128 kbps, 44.1 kHz) sized
// to approximate the requested duration.
func MP3(t testing.TB, spec AudioSpec) []byte {
	t.Helper()

	tag := id3v2.NewEmptyTag()
	if spec.Title != "" {
		tag.SetTitle(spec.Title)
	}
	if spec.Artist != "" {
		tag.SetArtist(spec.Artist)
	}
	if spec.Album != "" {
		tag.SetAlbum(spec.Album)
	}
	if spec.Genre != "" {
		tag.SetGenre(spec.Genre)
	}
	if spec.Year > 0 {
		tag.SetYear(strconv.Itoa(spec.Year))
	}
	if len(spec.Picture) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Picture:     spec.Picture,
		})
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("write id3 tag: %v", err)
	}

	duration := spec.DurationSeconds
	if duration <= 0 {
		duration = 1
	}
	// 128 kbps CBR: 16000 audio bytes per second, 417 bytes per frame.
	frames := duration*16000/417 + 1
	frame := make([]byte, 417)
	frame[0] = 0xFF
	frame[1] = 0xFB
	frame[2] = 0x90
	for i := 0; i < frames; i++ {
		buf.Write(frame)
	}
	return buf.Bytes()
}

// FLAC builds a structurally valid FLAC stream header: fLaC marker,
// STREAMINFO sized to the requested duration, and a Vorbis comment
// block carrying the spec's tags. No audio frames follow, which both
// parsers in use accept.
func FLAC(t testing.TB, spec AudioSpec) []byte {
	t.Helper()

	duration := spec.DurationSeconds
	if duration <= 0 {
		duration = 1
	}
	const sampleRate = 44100
	totalSamples := uint64(duration) * sampleRate

	var buf bytes.Buffer
	buf.WriteString("fLaC")

	// STREAMINFO, 34 bytes, not the last metadata block.
	buf.Write([]byte{0x00, 0x00, 0x00, 0x22})
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096) // min block size
	binary.BigEndian.PutUint16(info[2:4], 4096) // max block size
	// Frame size bounds stay zero (unknown).
	info[10] = byte(sampleRate >> 12)
	info[11] = byte(sampleRate >> 4 & 0xFF)
	// Low 4 bits of sample rate, 2 channels, 16 bits per sample.
	info[12] = byte(sampleRate&0xF)<<4 | (2-1)<<1 | byte((16-1)>>4)
	info[13] = byte((16-1)&0xF)<<4 | byte(totalSamples>>32&0xF)
	info[14] = byte(totalSamples >> 24)
	info[15] = byte(totalSamples >> 16)
	info[16] = byte(totalSamples >> 8)
	info[17] = byte(totalSamples)
	buf.Write(info)

	cmt := flacvorbis.New()
	addComment(t, cmt, flacvorbis.FIELD_TITLE, spec.Title)
	addComment(t, cmt, flacvorbis.FIELD_ARTIST, spec.Artist)
	addComment(t, cmt, flacvorbis.FIELD_ALBUM, spec.Album)
	addComment(t, cmt, flacvorbis.FIELD_GENRE, spec.Genre)
	if spec.Year > 0 {
		addComment(t, cmt, flacvorbis.FIELD_DATE, strconv.Itoa(spec.Year))
	}
	block := cmt.Marshal()

	// Vorbis comment block header, marked as the last metadata block.
	buf.WriteByte(0x80 | byte(block.Type))
	length := len(block.Data)
	buf.Write([]byte{byte(length >> 16), byte(length >> 8), byte(length)})
	buf.Write(block.Data)

	// Minimal audio frame sync code so the stream section is non-empty.
	buf.Write([]byte{0xFF, 0xF8})

	return buf.Bytes()
}

func addComment(t testing.TB, cmt *flacvorbis.MetaDataBlockVorbisComment, field, value string) {
	t.Helper()
	if value == "" {
		return
	}
	if err := cmt.Add(field, value); err != nil {
		t.Fatalf("add vorbis comment %s: %v", field, err)
	}
}

// RandomBytes returns deterministic pseudo-random bytes that do not
// parse as any supported audio container.
func RandomBytes(t testing.TB, size int) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(0x5EED))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Intn(0xE0)) // stays below 0xFF: no MPEG sync words
	}
	return data
}
