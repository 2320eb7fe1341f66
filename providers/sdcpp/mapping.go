package sdcpp

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sdcpp-tools/sdcli/core"
)

// extensionKeys is the fixed allow-list of parameters carried in the
// extension block, in wire order. Prompt, width, height, batch count and
// output format are handled as first-class envelope fields instead.
var extensionKeys = []string{
	"negative_prompt", "seed", "video_frames", "fps",
	"cfg_scale", "img_cfg_scale", "guidance", "strength",
	"steps", "sample_method", "scheduler",
	"high_noise_steps", "high_noise_sample_method",
	"clip_skip", "upscale_repeats", "moe_boundary",
	"control_strength", "pm_style_strength", "vace_strength",
	"cache_mode", "cache_option", "cache_preset", "scm_mask",
	"increase_ref_index", "auto_resize_ref_image",
	"skip_layers", "high_noise_skip_layers",
}

// BuildPayload folds a resolved generation option set into the wire request:
//
//   - allow-listed parameters copy verbatim into the extension object;
//   - width and height fold into a single "WxH" size when both are present,
//     otherwise the lone dimension stays an extension field;
//   - output_format and a non-zero batch_count lift to the top level;
//   - the prompt becomes user prompt + extension block, where an unsupplied
//     prompt defaults to the empty string.
//
// BuildPayload never rejects option values; malformed input is caught
// earlier, by core.Resolve.
func BuildPayload(gen *core.GenerationOptions) (*ImageRequest, error) {
	ext := orderedmap.New[string, any]()
	for _, key := range extensionKeys {
		if v, ok := gen.Get(key); ok {
			ext.Set(key, v)
		}
	}

	req := &ImageRequest{}

	width, hasWidth := gen.Int("width")
	height, hasHeight := gen.Int("height")
	switch {
	case hasWidth && hasHeight:
		req.Size = fmt.Sprintf("%dx%d", width, height)
	case hasWidth:
		ext.Set("width", width)
	case hasHeight:
		ext.Set("height", height)
	}

	if format, ok := gen.String("output_format"); ok {
		req.OutputFormat = format
	}
	if n, ok := gen.Int("batch_count"); ok && n != 0 {
		req.N = n
	}

	prompt, _ := gen.String("prompt")
	wirePrompt, err := embedExtension(prompt, ext)
	if err != nil {
		return nil, err
	}
	req.Prompt = wirePrompt

	return req, nil
}
