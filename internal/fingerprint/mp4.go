package fingerprint

import (
	"encoding/binary"
)

// MP4 metadata lives under moov.udta.meta.ilst; each item atom holds a
// 'data' sub-atom whose payload is the value. The copyright-sign atom
// names are the iTunes convention.
var mp4ItemPath = []string{"moov", "udta", "meta", "ilst"}

func readMP4Tags(data []byte, fp *Fingerprint) {
	ilst := data
	for _, name := range mp4ItemPath {
		box, ok := findBox(ilst, name)
		if !ok {
			return
		}
		ilst = box
		// The meta box carries a 4-byte version/flags prefix before its
		// children, unlike plain container boxes.
		if name == "meta" && len(ilst) >= 4 {
			ilst = ilst[4:]
		}
	}

	items := map[string]string{}
	var picture []byte
	walkBoxes(ilst, func(name string, body []byte) {
		value, ok := itemValue(body)
		if !ok {
			return
		}
		switch name {
		case "covr":
			picture = value
		default:
			if _, exists := items[name]; !exists {
				items[name] = string(value)
			}
		}
	})

	fp.Title = firstNonEmpty(items["\xa9nam"])
	fp.Artist = firstNonEmpty(items["\xa9ART"], items["aART"])
	fp.Album = firstNonEmpty(items["\xa9alb"])
	fp.Genre = firstNonEmpty(items["\xa9gen"])
	fp.Year = parseYear(firstNonEmpty(items["\xa9day"]))
	if len(picture) > 0 {
		fp.Picture = picture
	}
}

// findBox scans sibling boxes in data for the named one and returns its
// body.
func findBox(data []byte, name string) ([]byte, bool) {
	var found []byte
	walkBoxes(data, func(boxName string, body []byte) {
		if found == nil && boxName == name {
			found = body
		}
	})
	return found, found != nil
}

// walkBoxes iterates the sibling boxes in data, calling visit with each
// box's name and body. Malformed sizes terminate the walk.
func walkBoxes(data []byte, visit func(name string, body []byte)) {
	offset := 0
	for offset+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		name := string(data[offset+4 : offset+8])
		if size < 8 || offset+size > len(data) {
			return
		}
		visit(name, data[offset+8:offset+size])
		offset += size
	}
}

// itemValue extracts the payload of an item's 'data' sub-atom, skipping
// the 8-byte type/locale prefix.
func itemValue(body []byte) ([]byte, bool) {
	dataBox, ok := findBox(body, "data")
	if !ok || len(dataBox) < 8 {
		return nil, false
	}
	return dataBox[8:], true
}
