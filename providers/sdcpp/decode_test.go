package sdcpp

import (
	"errors"
	"testing"

	"github.com/sdcpp-tools/sdcli/core"
)

func TestDecodeImages(t *testing.T) {
	images, err := DecodeImages([]byte(`{"data":[{"b64_json":"aGVsbG8="}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("len(images) = %d, want 1", len(images))
	}
	if string(images[0]) != "hello" {
		t.Errorf("images[0] = %q, want %q", images[0], "hello")
	}
}

func TestDecodeImagesOrder(t *testing.T) {
	body := []byte(`{"data":[{"b64_json":"Zmlyc3Q="},{"b64_json":"c2Vjb25k"},{"b64_json":"dGhpcmQ="}]}`)
	images, err := DecodeImages(body)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"first", "second", "third"}
	if len(images) != len(want) {
		t.Fatalf("len(images) = %d, want %d", len(images), len(want))
	}
	for i, w := range want {
		if string(images[i]) != w {
			t.Errorf("images[%d] = %q, want %q", i, images[i], w)
		}
	}
}

func TestDecodeImagesFailures(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantKind  core.DecodeKind
		wantIndex int
	}{
		{"malformed json", `{not json`, core.DecodeMalformedJSON, -1},
		{"missing data key", `{"images":[]}`, core.DecodeUnexpectedShape, -1},
		{"non-object body", `[1,2,3]`, core.DecodeUnexpectedShape, -1},
		{"data not an array", `{"data":{"b64_json":"aGVsbG8="}}`, core.DecodeUnexpectedShape, -1},
		{"empty payload", `{"data":[{"b64_json":""}]}`, core.DecodeMissingImage, 0},
		{"missing payload field", `{"data":[{"b64_json":"aGVsbG8="},{}]}`, core.DecodeMissingImage, 1},
		{"bad base64", `{"data":[{"b64_json":"aGVsbG8="},{"b64_json":"!!!"}]}`, core.DecodeBadEncoding, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := DecodeImages([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if images != nil {
				t.Errorf("expected no partial results, got %d images", len(images))
			}

			var decErr *core.DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if decErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", decErr.Kind, tt.wantKind)
			}
			if decErr.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", decErr.Index, tt.wantIndex)
			}
			if !errors.Is(err, core.ErrDecode) {
				t.Error("decode failures should match core.ErrDecode")
			}
		})
	}
}

func TestDecodeImagesEmptyData(t *testing.T) {
	images, err := DecodeImages([]byte(`{"data":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 0 {
		t.Errorf("len(images) = %d, want 0", len(images))
	}
}
