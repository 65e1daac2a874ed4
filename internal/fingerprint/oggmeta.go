package fingerprint

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// vorbisCommentMarker starts the comment header packet in an Ogg Vorbis
// stream.
var vorbisCommentMarker = []byte("\x03vorbis")

// readOggTags does a best-effort scan for the Vorbis comment packet.
// Ogg page framing is ignored; comment headers small enough to matter
// sit in one page in practice, and a failed parse simply leaves the
// fields empty.
func readOggTags(data []byte, fp *Fingerprint) {
	idx := bytes.Index(data, vorbisCommentMarker)
	if idx < 0 {
		return
	}
	rest := data[idx+len(vorbisCommentMarker):]

	vendorLen, rest, ok := readUint32(rest)
	if !ok || uint32(len(rest)) < vendorLen {
		return
	}
	rest = rest[vendorLen:]

	count, rest, ok := readUint32(rest)
	if !ok {
		return
	}

	comments := map[string]string{}
	for i := uint32(0); i < count; i++ {
		var length uint32
		length, rest, ok = readUint32(rest)
		if !ok || uint32(len(rest)) < length {
			break
		}
		entry := string(rest[:length])
		rest = rest[length:]

		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, exists := comments[key]; !exists {
			comments[key] = strings.TrimSpace(value)
		}
	}

	fp.Title = firstNonEmpty(comments["TITLE"])
	fp.Artist = firstNonEmpty(comments["ARTIST"], comments["PERFORMER"])
	fp.Album = firstNonEmpty(comments["ALBUM"])
	fp.Genre = firstNonEmpty(comments["GENRE"])
	fp.Year = parseYear(firstNonEmpty(comments["DATE"], comments["YEAR"]))
}

func readUint32(data []byte) (uint32, []byte, bool) {
	if len(data) < 4 {
		return 0, nil, false
	}
	return binary.LittleEndian.Uint32(data[:4]), data[4:], true
}
