package chat

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FilePayload is an attachment carried inline in a message. Data is either
// raw base64 or a data URL; the core never stores it anywhere but history.
type FilePayload struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Data string `json:"data" validate:"required"`
}

// sniffLen is how many decoded bytes are inspected to detect a MIME type.
const sniffLen = 3072

// normalize fills in Type when the client did not provide one. A data URL
// header wins over content sniffing.
func (f *FilePayload) normalize() error {
	if f.Type != "" {
		return nil
	}

	encoded := f.Data
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return validationf("File data URL is malformed.")
		}
		mediaType, _, _ := strings.Cut(header, ";")
		if mediaType != "" {
			f.Type = mediaType
			return nil
		}
		encoded = payload
	}

	if len(encoded) > base64.StdEncoding.EncodedLen(sniffLen) {
		encoded = encoded[:base64.StdEncoding.EncodedLen(sniffLen)]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return validationf("File payload is not valid base64.")
	}
	f.Type = mimetype.Detect(raw).String()
	return nil
}
