package sdcpp

import (
	"encoding/base64"
	"encoding/json"

	"github.com/sdcpp-tools/sdcli/core"
)

// DecodeImages parses a generation response body and returns the raw image
// bytes in server-returned order. Decoding is all-or-nothing: the first
// structural or encoding defect aborts the decode with a *core.DecodeError
// and no partial results.
func DecodeImages(body []byte) ([][]byte, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &core.DecodeError{Kind: core.DecodeMalformedJSON, Index: -1, Err: err}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &core.DecodeError{Kind: core.DecodeUnexpectedShape, Index: -1}
	}
	records, ok := obj["data"].([]any)
	if !ok {
		return nil, &core.DecodeError{Kind: core.DecodeUnexpectedShape, Index: -1}
	}

	images := make([][]byte, 0, len(records))
	for i, record := range records {
		fields, _ := record.(map[string]any)
		b64, _ := fields["b64_json"].(string)
		if b64 == "" {
			return nil, &core.DecodeError{Kind: core.DecodeMissingImage, Index: i}
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, &core.DecodeError{Kind: core.DecodeBadEncoding, Index: i, Err: err}
		}
		images = append(images, raw)
	}

	return images, nil
}
