package sdcpp

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Extension block delimiters. Parameters outside the base OpenAI schema are
// carried as a JSON object spliced into the prompt between these tags; the
// server strips the block before using the remainder as the literal prompt.
const (
	extOpenTag  = "<sd_cpp_extra_args>"
	extCloseTag = "</sd_cpp_extra_args>"
)

// embedExtension splices the serialized extension object into the prompt.
// The object is emitted even when empty so the tags always bracket valid
// JSON.
func embedExtension(prompt string, ext *orderedmap.OrderedMap[string, any]) (string, error) {
	data, err := json.Marshal(ext)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extension object: %w", err)
	}
	return prompt + extOpenTag + string(data) + extCloseTag, nil
}

// ParseExtension splits a wire prompt back into the literal prompt text and
// the embedded extension key/value set. It is the inverse of the splice
// performed by BuildPayload and exists for verbose payload inspection and
// round-trip verification.
func ParseExtension(wirePrompt string) (string, map[string]any, error) {
	start := strings.Index(wirePrompt, extOpenTag)
	if start < 0 {
		return "", nil, fmt.Errorf("prompt has no %s block", extOpenTag)
	}
	rest := wirePrompt[start+len(extOpenTag):]
	end := strings.LastIndex(rest, extCloseTag)
	if end < 0 {
		return "", nil, fmt.Errorf("prompt has an unterminated %s block", extOpenTag)
	}

	ext := make(map[string]any)
	if err := json.Unmarshal([]byte(rest[:end]), &ext); err != nil {
		return "", nil, fmt.Errorf("failed to parse extension object: %w", err)
	}
	return wirePrompt[:start], ext, nil
}
