package sdcpp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sdcpp-tools/sdcli/core"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("path = %s, want /v1/images/generations", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}

		var req ImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}
		if !strings.Contains(req.Prompt, extOpenTag) {
			t.Errorf("prompt %q has no extension block", req.Prompt)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imageResponse{
			Created: 1234567890,
			Data: []imageData{
				{B64JSON: base64.StdEncoding.EncodeToString([]byte("image-bytes"))},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL) // no trailing slash: Endpoint must normalize

	gen := core.NewOptionSet()
	gen.Set("prompt", "a cat")
	req, err := BuildPayload(gen)
	if err != nil {
		t.Fatal(err)
	}

	images, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("len(images) = %d, want 1", len(images))
	}
	if string(images[0]) != "image-bytes" {
		t.Errorf("images[0] = %q, want image-bytes", images[0])
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "http://localhost:8080/v1/images/generations"},
		{"http://localhost:8080/", "http://localhost:8080/v1/images/generations"},
	}

	for _, tt := range tests {
		if got := New(tt.base).Endpoint(); got != tt.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "model not loaded",
				"type":    "server_error",
				"code":    "model_missing",
			},
		})
	}))
	defer server.Close()

	_, err := New(server.URL).Generate(context.Background(), &ImageRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var srvErr *core.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %T", err)
	}
	if srvErr.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", srvErr.Status)
	}
	if srvErr.Message != "model not loaded" {
		t.Errorf("Message = %q, want model not loaded", srvErr.Message)
	}
	if !errors.Is(err, core.ErrServer) {
		t.Error("5xx should match core.ErrServer")
	}
}

func TestGenerateServerErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request: prompt too long", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL).Generate(context.Background(), &ImageRequest{Prompt: "x"})

	var srvErr *core.ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %T", err)
	}
	if srvErr.Code != "unknown" {
		t.Errorf("Code = %q, want unknown", srvErr.Code)
	}
	if !strings.Contains(srvErr.Message, "prompt too long") {
		t.Errorf("Message = %q, want raw body included", srvErr.Message)
	}
	if !errors.Is(err, core.ErrBadRequest) {
		t.Error("400 should match core.ErrBadRequest")
	}
}

func TestGenerateNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := New(server.URL).Generate(context.Background(), &ImageRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, core.ErrNetwork) {
		t.Errorf("expected core.ErrNetwork, got %v", err)
	}
}

func TestGenerateExtraHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want Bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imageResponse{Data: []imageData{{B64JSON: "aGk="}}})
	}))
	defer server.Close()

	client := New(server.URL, WithHeader("Authorization", "Bearer token"))
	if _, err := client.Generate(context.Background(), &ImageRequest{Prompt: "x"}); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateDecodeFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"b64_json":"!!!"}]}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Generate(context.Background(), &ImageRequest{Prompt: "x"})

	var decErr *core.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if decErr.Kind != core.DecodeBadEncoding || decErr.Index != 0 {
		t.Errorf("got kind=%q index=%d, want bad_encoding at 0", decErr.Kind, decErr.Index)
	}
}
