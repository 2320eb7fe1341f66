package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sdcpp-tools/sdcli/cli/output"
	"github.com/sdcpp-tools/sdcli/core"
	"github.com/sdcpp-tools/sdcli/providers/sdcpp"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitServer     = 2
	ExitNetwork    = 3
	ExitOutput     = 4
)

// generateFlags holds every flag value. Only flags the user actually set are
// forwarded to the resolver; the stored defaults below exist for cobra's
// sake and never reach the server.
type generateFlags struct {
	serverURL      string
	outputPath     string
	outputBeginIdx int
	verbose        bool
	timeout        time.Duration

	prompt         string
	negativePrompt string
	height         int
	width          int
	steps          int
	highNoiseSteps int
	clipSkip       int
	batchCount     int
	videoFrames    int
	fps            int
	upscaleRepeats int

	cfgScale        float64
	imgCfgScale     float64
	guidance        float64
	strength        float64
	pmStyleStrength float64
	controlStrength float64
	moeBoundary     float64
	vaceStrength    float64

	increaseRefIndex          bool
	disableAutoResizeRefImage bool

	seed                  int64
	sampleMethod          string
	highNoiseSampleMethod string
	scheduler             string
	skipLayers            string
	highNoiseSkipLayers   string
	cacheMode             string
	cacheOption           string
	cachePreset           string
	scmMask               string
}

func (a *App) addGenerateFlags(cmd *cobra.Command) {
	fl := &a.flags
	f := cmd.Flags()

	f.StringVar(&fl.serverURL, "server-url", os.Getenv("SD_SERVER_URL"),
		"URL of the sd-server OpenAI-compatible endpoint (defaults to the SD_SERVER_URL environment variable)")
	f.StringVarP(&fl.outputPath, "output", "o", "./output.png",
		"path to write result images to; may contain a printf-style %d specifier for sequences (e.g. output_%03d.png), or - for stdout")
	f.IntVar(&fl.outputBeginIdx, "output-begin-idx", 0,
		"starting index for the output image sequence, must be non-negative (default 0 with a %d specifier in the output path, 1 otherwise)")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "print extra info")
	f.DurationVar(&fl.timeout, "timeout", 0, "request timeout, e.g. 90s or 5m (0 = wait indefinitely)")

	f.StringVarP(&fl.prompt, "prompt", "p", "", "the prompt to render")
	f.StringVarP(&fl.negativePrompt, "negative-prompt", "n", "", "the negative prompt")
	f.IntVarP(&fl.height, "height", "H", 0, "image height, in pixel space")
	f.IntVarP(&fl.width, "width", "W", 0, "image width, in pixel space")
	f.IntVar(&fl.steps, "steps", 0, "number of sample steps")
	f.IntVar(&fl.highNoiseSteps, "high-noise-steps", 0, "(high noise) number of sample steps")
	f.IntVar(&fl.clipSkip, "clip-skip", 0, "ignore last layers of the CLIP network; 1 ignores none, 2 ignores one layer")
	f.IntVarP(&fl.batchCount, "batch-count", "b", 0, "number of images to generate")
	f.IntVar(&fl.videoFrames, "video-frames", 0, "number of video frames")
	f.IntVar(&fl.fps, "fps", 0, "frames per second")
	f.IntVar(&fl.upscaleRepeats, "upscale-repeats", 0, "run the ESRGAN upscaler this many times")

	f.Float64Var(&fl.cfgScale, "cfg-scale", 0, "unconditional guidance scale")
	f.Float64Var(&fl.imgCfgScale, "img-cfg-scale", 0, "image guidance scale for inpaint or instruct-pix2pix models")
	f.Float64Var(&fl.guidance, "guidance", 0, "distilled guidance scale for models with guidance input")
	f.Float64Var(&fl.strength, "strength", 0, "strength for noising/unnoising")
	f.Float64Var(&fl.pmStyleStrength, "pm-style-strength", 0, "PhotoMaker style strength")
	f.Float64Var(&fl.controlStrength, "control-strength", 0, "strength to apply Control Net")
	f.Float64Var(&fl.moeBoundary, "moe-boundary", 0, "timestep boundary for Wan2.2 MoE models")
	f.Float64Var(&fl.vaceStrength, "vace-strength", 0, "Wan VACE strength")

	f.BoolVar(&fl.increaseRefIndex, "increase-ref-index", false,
		"automatically increase the indices of reference images in the order they are listed")
	f.BoolVar(&fl.disableAutoResizeRefImage, "disable-auto-resize-ref-image", false,
		"disable auto resize of reference images")

	f.Int64VarP(&fl.seed, "seed", "s", 0, "RNG seed (use a negative value for a random seed)")
	f.StringVar(&fl.sampleMethod, "sampling-method", "",
		"sampling method, one of [euler, euler_a, heun, dpm2, dpm++2s_a, dpm++2m, dpm++2mv2, ipndm, ipndm_v, lcm, ddim_trailing, tcd]")
	f.StringVar(&fl.highNoiseSampleMethod, "high-noise-sampling-method", "", "(high noise) sampling method")
	f.StringVar(&fl.scheduler, "scheduler", "",
		"denoiser sigma scheduler, one of [discrete, karras, exponential, ays, gits, smoothstep, sgm_uniform, simple, kl_optimal, lcm]")
	f.StringVar(&fl.skipLayers, "skip-layers", "", "comma-separated layers to skip for SLG steps (e.g. 7,8,9)")
	f.StringVar(&fl.highNoiseSkipLayers, "high-noise-skip-layers", "", "(high noise) comma-separated layers to skip for SLG steps")
	f.StringVar(&fl.cacheMode, "cache-mode", "", "caching method: easycache, ucache, dbcache, taylorseer or cache-dit")
	f.StringVar(&fl.cacheOption, "cache-option", "", `named cache params, key=value comma-separated (e.g. "threshold=0.25")`)
	f.StringVar(&fl.cachePreset, "cache-preset", "", "cache-dit preset: slow/s, medium/m, fast/f, ultra/u")
	f.StringVar(&fl.scmMask, "scm-mask", "", `SCM steps mask for cache-dit, comma-separated 0/1 (e.g. "1,1,1,0,0,1")`)
}

// applyConfig fills flag values from the config file. Explicit flags and the
// SD_SERVER_URL environment variable win over config entries.
func (a *App) applyConfig(fs *pflag.FlagSet) error {
	if a.cfg == nil {
		return nil
	}
	fl := &a.flags

	if fl.serverURL == "" && a.cfg.ServerURL != "" {
		fl.serverURL = a.cfg.ServerURL
	}
	if !fs.Changed("output") && a.cfg.Output != "" {
		fl.outputPath = a.cfg.Output
	}
	if !fs.Changed("verbose") && a.cfg.Verbose {
		fl.verbose = true
	}
	if !fs.Changed("timeout") && a.cfg.Timeout != "" {
		d, err := a.cfg.TimeoutDuration()
		if err != nil {
			return exitWithCode(ExitValidation, err)
		}
		fl.timeout = d
	}
	return nil
}

// suppliedOptions builds the raw option set from the flags the user actually
// set, in declaration order. server_url participates whenever it has a value
// (flag, environment or config), and output always participates so its
// default drives the format inference, matching the server-side-defaults
// contract for everything else.
func (a *App) suppliedOptions(fs *pflag.FlagSet) *core.OptionSet {
	fl := &a.flags
	set := core.NewOptionSet()

	bindings := []struct {
		flag  string
		name  string
		value func() any
	}{
		{"server-url", core.KeyServerURL, func() any { return fl.serverURL }},
		{"output", core.KeyOutput, func() any { return fl.outputPath }},
		{"output-begin-idx", core.KeyOutputBeginIdx, func() any { return fl.outputBeginIdx }},
		{"verbose", core.KeyVerbose, func() any { return fl.verbose }},
		{"prompt", "prompt", func() any { return fl.prompt }},
		{"negative-prompt", "negative_prompt", func() any { return fl.negativePrompt }},
		{"height", "height", func() any { return fl.height }},
		{"width", "width", func() any { return fl.width }},
		{"steps", "steps", func() any { return fl.steps }},
		{"high-noise-steps", "high_noise_steps", func() any { return fl.highNoiseSteps }},
		{"clip-skip", "clip_skip", func() any { return fl.clipSkip }},
		{"batch-count", "batch_count", func() any { return fl.batchCount }},
		{"video-frames", "video_frames", func() any { return fl.videoFrames }},
		{"fps", "fps", func() any { return fl.fps }},
		{"upscale-repeats", "upscale_repeats", func() any { return fl.upscaleRepeats }},
		{"cfg-scale", "cfg_scale", func() any { return fl.cfgScale }},
		{"img-cfg-scale", "img_cfg_scale", func() any { return fl.imgCfgScale }},
		{"guidance", "guidance", func() any { return fl.guidance }},
		{"strength", "strength", func() any { return fl.strength }},
		{"pm-style-strength", "pm_style_strength", func() any { return fl.pmStyleStrength }},
		{"control-strength", "control_strength", func() any { return fl.controlStrength }},
		{"moe-boundary", "moe_boundary", func() any { return fl.moeBoundary }},
		{"vace-strength", "vace_strength", func() any { return fl.vaceStrength }},
		{"increase-ref-index", "increase_ref_index", func() any { return fl.increaseRefIndex }},
		{"seed", "seed", func() any { return fl.seed }},
		{"sampling-method", "sample_method", func() any { return fl.sampleMethod }},
		{"high-noise-sampling-method", "high_noise_sample_method", func() any { return fl.highNoiseSampleMethod }},
		{"scheduler", "scheduler", func() any { return fl.scheduler }},
		{"skip-layers", "skip_layers", func() any { return fl.skipLayers }},
		{"high-noise-skip-layers", "high_noise_skip_layers", func() any { return fl.highNoiseSkipLayers }},
		{"cache-mode", "cache_mode", func() any { return fl.cacheMode }},
		{"cache-option", "cache_option", func() any { return fl.cacheOption }},
		{"cache-preset", "cache_preset", func() any { return fl.cachePreset }},
		{"scm-mask", "scm_mask", func() any { return fl.scmMask }},
	}

	for _, b := range bindings {
		switch {
		case fs.Changed(b.flag):
			set.Set(b.name, b.value())
		case b.name == core.KeyServerURL && fl.serverURL != "":
			set.Set(b.name, fl.serverURL)
		case b.name == core.KeyOutput:
			set.Set(b.name, fl.outputPath)
		case b.name == core.KeyVerbose && fl.verbose:
			set.Set(b.name, fl.verbose)
		}
	}

	// Passing the disable flag forwards auto_resize_ref_image=false; silence
	// leaves the server default in place.
	if fs.Changed("disable-auto-resize-ref-image") {
		set.Set("auto_resize_ref_image", !fl.disableAutoResizeRefImage)
	}

	return set
}

func (a *App) runGenerate(cmd *cobra.Command, args []string) error {
	a.warnUnknownFlags(cmd.Flags(), a.rawArgs)

	util, gen, err := core.Resolve(a.suppliedOptions(cmd.Flags()))
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	if util.ServerURL == "" {
		return exitWithCode(ExitValidation, core.ErrServerURLRequired)
	}

	payload, err := sdcpp.BuildPayload(gen)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	client := sdcpp.New(util.ServerURL, sdcpp.WithTimeout(a.flags.timeout))

	if util.Verbose {
		fmt.Fprintf(a.stderr, "Sending request to: %s\n", client.Endpoint())
		if dump, err := json.MarshalIndent(payload, "", "  "); err == nil {
			fmt.Fprintf(a.stderr, "Payload: %s\n", dump)
		}
	}

	images, err := client.Generate(cmd.Context(), payload)
	if err != nil {
		return exitWithCode(classifyExit(err), err)
	}

	if err := output.Write(images, output.WriteOptions{
		Output:     util.Output,
		BeginIdx:   util.OutputBeginIdx,
		Verbose:    util.Verbose,
		Log:        a.stderr,
		Stdout:     a.stdout,
		IsTerminal: a.stdoutIsTerminal,
	}); err != nil {
		return exitWithCode(ExitOutput, err)
	}

	return nil
}

// warnUnknownFlags reports arguments that the parser skipped because they are
// not part of the supported flag set. Unknown flags are ignored rather than
// fatal so an older client keeps working as the server's parameter set grows.
// When a known flag takes its value from the following argument, that
// argument is skipped so values like -s -1 are not mistaken for flags.
func (a *App) warnUnknownFlags(fs *pflag.FlagSet, args []string) {
	skipValue := false
	for _, arg := range args {
		if skipValue {
			skipValue = false
			continue
		}
		if arg == "--" {
			break
		}
		switch {
		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")
			inline := strings.Index(name, "=")
			if inline >= 0 {
				name = name[:inline]
			}
			if name == "" || name == "help" {
				continue
			}
			if f := fs.Lookup(name); f != nil {
				skipValue = inline < 0 && f.NoOptDefVal == ""
				continue
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			short := arg[1:2]
			if short == "h" {
				continue
			}
			if f := fs.ShorthandLookup(short); f != nil {
				skipValue = len(arg) == 2 && f.NoOptDefVal == ""
				continue
			}
		default:
			continue
		}
		fmt.Fprintf(a.stderr, "Warning: unsupported argument %q will be ignored.\n", arg)
	}
}

// classifyExit maps a generation failure to an exit code.
func classifyExit(err error) int {
	switch {
	case errors.Is(err, core.ErrNetwork):
		return ExitNetwork
	case errors.Is(err, core.ErrDecode):
		return ExitServer
	default:
		return ExitServer
	}
}

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
