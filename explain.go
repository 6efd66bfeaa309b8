package enveye

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Explanation errors.
var (
	// ErrInvalidAttachment is returned when an attached file is not a usable image.
	ErrInvalidAttachment = errors.New("invalid attachment")

	// ErrRequestFailed is wrapped by every explanation request failure.
	ErrRequestFailed = errors.New("explanation request failed")
)

// RequestFailedReason is the single operator-facing message for any failed
// explanation request.
const RequestFailedReason = "Failed to get AI explanation."

// MaxScreenshotSize bounds the raw size of an attached screenshot (10 MiB).
const MaxScreenshotSize = 10 << 20

// ExplanationContext is the payload sent to the explanation service.
type ExplanationContext struct {
	Diff            *StructuralDiff
	ErrorMessage    string
	ErrorScreenshot *Screenshot // nil when no screenshot is attached
	LogPath         string
}

// Screenshot is an attached image encoded as a base64 data URI.
type Screenshot struct {
	MIMEType string
	DataURI  string // data:<mime>;base64,<payload>
	Size     int    // Raw size in bytes
}

// EncodeScreenshot validates the declared MIME type and encodes raw image
// bytes as a data URI. It fails with ErrInvalidAttachment unless the declared
// type is image/*.
func EncodeScreenshot(raw []byte, declaredMIME string) (*Screenshot, error) {
	mediaType, err := imageMediaType(declaredMIME)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidAttachment)
	}
	if len(raw) > MaxScreenshotSize {
		return nil, fmt.Errorf("%w: image is %d bytes, limit is %d", ErrInvalidAttachment, len(raw), MaxScreenshotSize)
	}

	return &Screenshot{
		MIMEType: mediaType,
		DataURI:  "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw),
		Size:     len(raw),
	}, nil
}

// ParseScreenshot decodes a data URI produced by EncodeScreenshot.
func ParseScreenshot(dataURI string) (*Screenshot, []byte, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return nil, nil, fmt.Errorf("%w: not a data URI", ErrInvalidAttachment)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, nil, fmt.Errorf("%w: data URI has no payload", ErrInvalidAttachment)
	}
	declared, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, nil, fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidAttachment)
	}
	mediaType, err := imageMediaType(declared)
	if err != nil {
		return nil, nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
	}
	return &Screenshot{MIMEType: mediaType, DataURI: dataURI, Size: len(data)}, data, nil
}

func imageMediaType(declared string) (string, error) {
	if declared == "" {
		return "", fmt.Errorf("%w: no content type", ErrInvalidAttachment)
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", ErrInvalidAttachment, mediaType)
	}
	return mediaType, nil
}
