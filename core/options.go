package core

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Utility option names. These are the only keys the client consumes itself;
// every other supplied option is a generation parameter bound for the server.
const (
	KeyServerURL      = "server_url"
	KeyOutput         = "output"
	KeyOutputBeginIdx = "output_begin_idx"
	KeyVerbose        = "verbose"
)

// listOptions arrive from the command line as comma-delimited strings and are
// forwarded to the server as integer sequences.
var listOptions = []string{"skip_layers", "high_noise_skip_layers"}

// OptionSet is an insertion-ordered mapping from option name to a scalar
// value (string, int, int64, float64, bool) or an []int sequence. A key is
// present only if the caller supplied a value; absence means the server
// applies its own default, and the client never injects one.
type OptionSet struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewOptionSet returns an empty option set.
func NewOptionSet() *OptionSet {
	return &OptionSet{om: orderedmap.New[string, any]()}
}

// Set stores a value under name. Re-setting an existing name keeps its
// original position.
func (s *OptionSet) Set(name string, value any) {
	s.om.Set(name, value)
}

// Get returns the value stored under name.
func (s *OptionSet) Get(name string) (any, bool) {
	return s.om.Get(name)
}

// String returns the value under name if it is a string.
func (s *OptionSet) String(name string) (string, bool) {
	v, ok := s.om.Get(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Int returns the value under name if it is an int.
func (s *OptionSet) Int(name string) (int, bool) {
	v, ok := s.om.Get(name)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// Bool returns the value under name if it is a bool.
func (s *OptionSet) Bool(name string) (bool, bool) {
	v, ok := s.om.Get(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Len returns the number of stored options.
func (s *OptionSet) Len() int {
	return s.om.Len()
}

// Names returns the option names in insertion order.
func (s *OptionSet) Names() []string {
	names := make([]string, 0, s.om.Len())
	for pair := s.om.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// MarshalJSON serializes the set as a JSON object in insertion order.
func (s *OptionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.om)
}

// GenerationOptions is the open-ended parameter set forwarded to the server,
// keyed by wire name.
type GenerationOptions = OptionSet

// UtilityOptions holds the client-side options. Constructed once by Resolve,
// immutable thereafter.
type UtilityOptions struct {
	ServerURL string
	// Output is the path template result images are written to.
	Output string
	// OutputBeginIdx overrides the default starting index of the output
	// sequence; nil means branch-dependent default (0 with a placeholder in
	// the template, 1 without).
	OutputBeginIdx *int
	Verbose        bool
}

// Resolve partitions the raw command-line-supplied values into utility and
// generation options. The utility key set is closed; unrecognized names pass
// through to the generation set unchanged, which keeps the client forward
// compatible with new server parameters.
//
// Layer-skip lists supplied as delimited strings are parsed into integer
// sequences, and the wire output format is inferred from the output path
// extension and injected into the generation set. Resolve performs no I/O.
func Resolve(supplied *OptionSet) (*UtilityOptions, *GenerationOptions, error) {
	util := &UtilityOptions{}
	gen := NewOptionSet()

	for pair := supplied.om.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case KeyServerURL:
			util.ServerURL, _ = pair.Value.(string)
		case KeyOutput:
			util.Output, _ = pair.Value.(string)
		case KeyOutputBeginIdx:
			idx, ok := pair.Value.(int)
			if !ok {
				return nil, nil, fmt.Errorf("output-begin-idx: expected an integer, got %T", pair.Value)
			}
			if idx < 0 {
				return nil, nil, fmt.Errorf("output-begin-idx must be non-negative, got %d", idx)
			}
			util.OutputBeginIdx = &idx
		case KeyVerbose:
			util.Verbose, _ = pair.Value.(bool)
		default:
			gen.Set(pair.Key, pair.Value)
		}
	}

	for _, name := range listOptions {
		raw, ok := gen.Get(name)
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue // already an integer sequence
		}
		layers, err := parseIntList(str)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", strings.ReplaceAll(name, "_", "-"), err)
		}
		gen.Set(name, layers)
	}

	if util.Output != "" {
		gen.Set("output_format", FormatForPath(util.Output))
	}

	return util, gen, nil
}

// FormatForPath infers the wire output format from the output path's file
// extension. The format is derived, never requested directly.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".jpe":
		return "jpeg"
	default:
		return "png"
	}
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", strings.TrimSpace(part))
		}
		out = append(out, n)
	}
	return out, nil
}
