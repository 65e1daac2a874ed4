package validate

import (
	"bytes"
	"fmt"
	"os"

	mewflac "github.com/mewkiz/flac"

	"crate/internal/media/mpegaudio"
)

// asfHeaderGUID begins every ASF (wma) container.
var asfHeaderGUID = []byte{
	0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
	0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
}

// decodeWithFallback parses data as the container ext claims, first in
// memory and then from a temp file. The temp-file pass exists because
// some codec parsers behave unreliably against non-seekable in-memory
// buffers; both must fail before the submission is rejected.
func decodeWithFallback(data []byte, ext string) error {
	memErr := decodeInMemory(data, ext)
	if memErr == nil {
		return nil
	}

	tmp, err := os.CreateTemp("", "crate-validate-*"+ext)
	if err != nil {
		return memErr
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return memErr
	}
	if err := tmp.Close(); err != nil {
		return memErr
	}

	if err := decodeFile(tmpName, ext); err != nil {
		return fmt.Errorf("audio stream did not parse as %s: %w", ext, memErr)
	}
	return nil
}

func decodeInMemory(data []byte, ext string) error {
	switch ext {
	case ".mp3":
		return checkMP3(data)
	case ".flac":
		stream, err := mewflac.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse flac stream: %w", err)
		}
		_ = stream.Close()
		return nil
	case ".wav":
		return checkMagic(data, "RIFF", 0, "WAVE", 8)
	case ".aiff":
		if err := checkMagic(data, "FORM", 0, "AIFF", 8); err != nil {
			return checkMagic(data, "FORM", 0, "AIFC", 8)
		}
		return nil
	case ".ogg":
		return checkMagic(data, "OggS", 0, "", 0)
	case ".m4a":
		return checkMagic(data, "ftyp", 4, "", 0)
	case ".wma":
		if len(data) < len(asfHeaderGUID) || !bytes.Equal(data[:len(asfHeaderGUID)], asfHeaderGUID) {
			return fmt.Errorf("missing ASF header")
		}
		return nil
	default:
		return fmt.Errorf("no structural check for %s", ext)
	}
}

func decodeFile(path string, ext string) error {
	if ext == ".flac" {
		stream, err := mewflac.ParseFile(path)
		if err != nil {
			return err
		}
		return stream.Close()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return decodeInMemory(data, ext)
}

func checkMP3(data []byte) error {
	if _, _, err := mpegaudio.FindFirstFrame(data); err != nil {
		return fmt.Errorf("parse mpeg audio: %w", err)
	}
	return nil
}

func checkMagic(data []byte, magic string, offset int, second string, secondOffset int) error {
	if len(data) < offset+len(magic) {
		return fmt.Errorf("truncated header")
	}
	if string(data[offset:offset+len(magic)]) != magic {
		return fmt.Errorf("missing %s marker", magic)
	}
	if second != "" {
		if len(data) < secondOffset+len(second) {
			return fmt.Errorf("truncated header")
		}
		if string(data[secondOffset:secondOffset+len(second)]) != second {
			return fmt.Errorf("missing %s marker", second)
		}
	}
	return nil
}
