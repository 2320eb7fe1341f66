package sdcpp

// ImageRequest is the JSON body sent to the images/generations endpoint. The
// top-level keys are limited to the OpenAI-compatible envelope; every other
// generation parameter travels inside Prompt via the extension block.
type ImageRequest struct {
	Prompt       string `json:"prompt"`
	N            int    `json:"n,omitempty"`
	Size         string `json:"size,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// imageResponse mirrors the success response shape. It is used by tests and
// documentation; DecodeImages itself parses structurally so it can tell a
// missing data key apart from an empty one.
type imageResponse struct {
	Created int64       `json:"created,omitempty"`
	Data    []imageData `json:"data"`
}

// imageData is a single generated image record.
type imageData struct {
	B64JSON string `json:"b64_json"`
}
