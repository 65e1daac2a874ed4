package validate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects validation depth.
type Mode int

const (
	// ModeLight checks size and extension only.
	ModeLight Mode = iota
	// ModeFull additionally parses container/codec headers.
	ModeFull
)

// Code identifies why a submission was rejected.
type Code string

const (
	CodeEmptyFile          Code = "empty_file"
	CodeFileTooLarge       Code = "file_too_large"
	CodeUnsupportedType    Code = "unsupported_type"
	CodeInvalidOrCorrupted Code = "invalid_or_corrupted"
)

// Result is the outcome of validating one submission.
type Result struct {
	Valid     bool
	MIMEType  string
	Extension string
	SizeBytes int64
	Code      Code
	Reason    string
}

// mimeByExtension is the fixed allow-list of supported audio types.
var mimeByExtension = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aiff": "audio/aiff",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wma":  "audio/x-ms-wma",
}

// Validator checks submitted audio against size and format constraints.
type Validator struct {
	maxBytes int64
}

// New returns a Validator enforcing the given upload ceiling in bytes.
func New(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// Validate classifies data as supported audio. The declared name supplies
// the extension; in ModeFull the byte stream must also parse as the
// container the extension claims.
func (v *Validator) Validate(data []byte, declaredName string, mode Mode) Result {
	size := int64(len(data))

	if size == 0 {
		return invalid(CodeEmptyFile, "file is empty", size)
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		return invalid(CodeFileTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", size, v.maxBytes), size)
	}

	ext := strings.ToLower(filepath.Ext(declaredName))
	mimeType, ok := mimeByExtension[ext]
	if !ok {
		return invalid(CodeUnsupportedType,
			fmt.Sprintf("extension %q is not a supported audio type", ext), size)
	}

	if mode == ModeFull {
		if err := decodeWithFallback(data, ext); err != nil {
			return invalid(CodeInvalidOrCorrupted, err.Error(), size)
		}
	}

	return Result{
		Valid:     true,
		MIMEType:  mimeType,
		Extension: ext,
		SizeBytes: size,
	}
}

// SupportedExtension reports whether the declared name carries an
// allow-listed audio extension.
func SupportedExtension(declaredName string) bool {
	_, ok := mimeByExtension[strings.ToLower(filepath.Ext(declaredName))]
	return ok
}

func invalid(code Code, reason string, size int64) Result {
	return Result{Code: code, Reason: reason, SizeBytes: size}
}
