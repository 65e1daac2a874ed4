package fingerprint

import (
	"bytes"

	"github.com/bogem/id3v2/v2"
)

// ID3v2 frame IDs tried per logical field, in priority order. The same
// logical field appears under different IDs depending on which tagger
// wrote the file.
var (
	id3TitleFrames  = []string{"TIT2"}
	id3ArtistFrames = []string{"TPE1"}
	id3AlbumFrames  = []string{"TALB"}
	id3GenreFrames  = []string{"TCON"}
	id3YearFrames   = []string{"TDRC", "TYER"}
)

func readID3Tags(data []byte, fp *Fingerprint) {
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil || tag == nil {
		return
	}
	defer tag.Close()

	fp.Title = firstNonEmpty(textFrames(tag, id3TitleFrames)...)
	fp.Artist = firstNonEmpty(textFrames(tag, id3ArtistFrames)...)
	fp.Album = firstNonEmpty(textFrames(tag, id3AlbumFrames)...)
	fp.Genre = firstNonEmpty(textFrames(tag, id3GenreFrames)...)
	fp.Year = parseYear(firstNonEmpty(textFrames(tag, id3YearFrames)...))

	for _, framer := range tag.GetFrames(tag.CommonID("Attached picture")) {
		picture, ok := framer.(id3v2.PictureFrame)
		if !ok || len(picture.Picture) == 0 {
			continue
		}
		fp.Picture = picture.Picture
		break
	}
}

func textFrames(tag *id3v2.Tag, ids []string) []string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, tag.GetTextFrame(id).Text)
	}
	return values
}
