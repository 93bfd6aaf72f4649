package signature

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"

	dErrors "dlvery/pkg/domain-errors"
)

const (
	maxUploadBytes = 1 << 20
	maxDimension   = 4096
)

// DecodeUpload accepts a raw base64 PNG or a data URL and returns the PNG bytes
// after checking that they decode as a PNG of sane dimensions.
func DecodeUpload(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "signature is required")
	}
	if strings.HasPrefix(encoded, "data:") {
		if !strings.HasPrefix(encoded, dataURLPrefix) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "signature must be a PNG data URL")
		}
		encoded = strings.TrimPrefix(encoded, dataURLPrefix)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxUploadBytes {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signature image is too large")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "signature is not valid base64")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "signature is not a PNG image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxDimension || cfg.Height > maxDimension {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signature image dimensions are out of range")
	}
	return raw, nil
}
