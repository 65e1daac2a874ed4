package fingerprint

import (
	"bytes"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	mewflac "github.com/mewkiz/flac"
)

// Vorbis comment fields tried per logical field, in priority order.
var (
	vorbisTitleFields  = []string{flacvorbis.FIELD_TITLE}
	vorbisArtistFields = []string{flacvorbis.FIELD_ARTIST, "PERFORMER"}
	vorbisAlbumFields  = []string{flacvorbis.FIELD_ALBUM}
	vorbisGenreFields  = []string{flacvorbis.FIELD_GENRE}
	vorbisDateFields   = []string{flacvorbis.FIELD_DATE, "YEAR"}
)

func readFLACTags(data []byte, fp *Fingerprint) {
	file, err := goflac.ParseBytes(bytes.NewReader(data))
	if err != nil {
		return
	}

	for _, block := range file.Meta {
		switch block.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			fp.Title = firstNonEmpty(vorbisValues(cmt, vorbisTitleFields)...)
			fp.Artist = firstNonEmpty(vorbisValues(cmt, vorbisArtistFields)...)
			fp.Album = firstNonEmpty(vorbisValues(cmt, vorbisAlbumFields)...)
			fp.Genre = firstNonEmpty(vorbisValues(cmt, vorbisGenreFields)...)
			fp.Year = parseYear(firstNonEmpty(vorbisValues(cmt, vorbisDateFields)...))
		case goflac.Picture:
			if len(fp.Picture) > 0 {
				continue
			}
			picture, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil || len(picture.ImageData) == 0 {
				continue
			}
			fp.Picture = picture.ImageData
		}
	}

	readFLACStreamInfo(data, fp)
}

// readFLACStreamInfo derives duration and quality from STREAMINFO:
// samples over sample rate, and the real byte rate over that duration.
func readFLACStreamInfo(data []byte, fp *Fingerprint) {
	stream, err := mewflac.Parse(bytes.NewReader(data))
	if err != nil {
		return
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NSamples == 0 {
		return
	}
	seconds := int(info.NSamples / uint64(info.SampleRate))
	fp.DurationSeconds = seconds
	if seconds > 0 {
		fp.QualityKbps = int(fp.SizeBytes * 8 / int64(seconds) / 1000)
	}
}

func vorbisValues(cmt *flacvorbis.MetaDataBlockVorbisComment, fields []string) []string {
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		found, err := cmt.Get(field)
		if err != nil || len(found) == 0 {
			continue
		}
		values = append(values, found[0])
	}
	return values
}
