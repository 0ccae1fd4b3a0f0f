package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestGemini(t *testing.T, handler http.Handler) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGeminiClient(GeminiConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
		Logger:       discardLogger(),
	})
}

func TestGeminiUploadFile(t *testing.T) {
	t.Run("uploads raw bytes with detected mime type", func(t *testing.T) {
		var gotMime string
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/upload/v1beta/files" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("key"); got != "test-key" {
				t.Errorf("key = %q", got)
			}
			gotMime = r.Header.Get("Content-Type")
			json.NewEncoder(w).Encode(geminiFileEnvelope{File: GeminiFile{
				Name:     "files/abc123",
				URI:      "https://generativelanguage.googleapis.com/v1beta/files/abc123",
				MimeType: gotMime,
				State:    "PROCESSING",
			}})
		}))

		path := filepath.Join(t.TempDir(), "source.mp4")
		if err := os.WriteFile(path, []byte("fake video"), 0o644); err != nil {
			t.Fatal(err)
		}

		file, err := client.UploadFile(context.Background(), path)
		if err != nil {
			t.Fatalf("UploadFile() error = %v", err)
		}
		if file.Name != "files/abc123" {
			t.Errorf("file name = %q", file.Name)
		}
		if gotMime != "video/mp4" {
			t.Errorf("mime type = %q, want video/mp4", gotMime)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		if _, err := client.UploadFile(context.Background(), "/does/not/exist.mp4"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestGeminiWaitForFile(t *testing.T) {
	t.Run("polls until active", func(t *testing.T) {
		var calls atomic.Int64
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1beta/files/abc123" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			state := "PROCESSING"
			if calls.Add(1) >= 2 {
				state = "ACTIVE"
			}
			json.NewEncoder(w).Encode(GeminiFile{Name: "files/abc123", URI: "uri", State: state})
		}))

		file, err := client.WaitForFile(context.Background(), &GeminiFile{Name: "files/abc123", State: "PROCESSING"})
		if err != nil {
			t.Fatalf("WaitForFile() error = %v", err)
		}
		if file.State != "ACTIVE" {
			t.Errorf("state = %q", file.State)
		}
	})

	t.Run("already active returns immediately", func(t *testing.T) {
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for an active file")
		}))
		file, err := client.WaitForFile(context.Background(), &GeminiFile{Name: "files/x", State: "ACTIVE"})
		if err != nil {
			t.Fatalf("WaitForFile() error = %v", err)
		}
		if file.State != "ACTIVE" {
			t.Errorf("state = %q", file.State)
		}
	})

	t.Run("failed processing is an error", func(t *testing.T) {
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(GeminiFile{Name: "files/abc123", State: "FAILED"})
		}))
		if _, err := client.WaitForFile(context.Background(), &GeminiFile{Name: "files/abc123", State: "PROCESSING"}); err == nil {
			t.Fatal("expected error for failed processing")
		}
	})
}

func TestGeminiGenerateContent(t *testing.T) {
	file := &GeminiFile{Name: "files/abc123", URI: "https://example/files/abc123", MimeType: "video/mp4"}

	t.Run("returns candidate text", func(t *testing.T) {
		var gotReq geminiGenerateRequest
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"video_analysis:\n"},{"text":"  total_scenes: 3"}]}}]}`))
		}))

		text, err := client.GenerateContent(context.Background(), file, "Analyze the video.")
		if err != nil {
			t.Fatalf("GenerateContent() error = %v", err)
		}
		if text != "video_analysis:\n  total_scenes: 3" {
			t.Errorf("text = %q", text)
		}

		parts := gotReq.Contents[0].Parts
		if len(parts) != 2 || parts[0].FileData == nil || parts[0].FileData.FileURI != file.URI {
			t.Errorf("request parts = %+v", parts)
		}
		if parts[1].Text != "Analyze the video." {
			t.Errorf("prompt part = %q", parts[1].Text)
		}
	})

	t.Run("api error payload surfaces", func(t *testing.T) {
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"code":400,"message":"bad input"}}`))
		}))
		if _, err := client.GenerateContent(context.Background(), file, "p"); err == nil {
			t.Fatal("expected error from error payload")
		}
	})

	t.Run("empty candidates is an error", func(t *testing.T) {
		client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		}))
		if _, err := client.GenerateContent(context.Background(), file, "p"); err == nil {
			t.Fatal("expected error for empty candidates")
		}
	})
}

func TestGeminiDeleteFile(t *testing.T) {
	client := newTestGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/v1beta/files/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	if err := client.DeleteFile(context.Background(), &GeminiFile{Name: "files/abc123"}); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
}
