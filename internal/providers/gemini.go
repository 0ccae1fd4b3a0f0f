package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativecloner/cloner/internal/poll"
)

const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com"
	GeminiDefaultModel = "gemini-2.5-flash"

	// fileProcessingInterval is how often uploaded media is re-checked
	// while Gemini ingests it.
	fileProcessingInterval = 2 * time.Second
)

// GeminiFile is a file uploaded to the Gemini Files API.
type GeminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

type geminiFileEnvelope struct {
	File GeminiFile `json:"file"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// GeminiClient talks to the Gemini Files and generateContent APIs. It is
// used by the analysis stage (video scene breakdown) and the prompt stage
// (reference subject description).
type GeminiClient struct {
	apiKey       string
	baseURL      string
	model        string
	pollInterval time.Duration
	client       *http.Client
	logger       *slog.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = fileProcessingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
	}
}

// UploadFile uploads local media to the Files API and returns the file
// handle. MIME type is detected from the extension; fallback defaults to
// video/mp4 for unknown extensions since source inputs are videos.
func (c *GeminiClient) UploadFile(ctx context.Context, path string) (*GeminiFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	u := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	c.logger.Info("uploading file to gemini", "path", path, "mime_type", mimeType, "bytes", len(data))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var envelope geminiFileEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal upload response: %w", err)
	}
	if envelope.File.Name == "" {
		return nil, fmt.Errorf("no file name in upload response: %s", string(respBody))
	}

	c.logger.Info("upload complete", "file", envelope.File.Name, "state", envelope.File.State)
	return &envelope.File, nil
}

// WaitForFile polls an uploaded file until Gemini finishes processing it.
func (c *GeminiClient) WaitForFile(ctx context.Context, file *GeminiFile) (*GeminiFile, error) {
	current := file
	for current.State == "PROCESSING" {
		if err := poll.Wait(ctx, c.pollInterval); err != nil {
			return nil, err
		}

		u := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, current.Name, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create file status request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("file status request failed: %w", err)
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read file status response: %w", readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, classifyStatus(resp.StatusCode, respBody)
		}

		var updated GeminiFile
		if err := json.Unmarshal(respBody, &updated); err != nil {
			return nil, fmt.Errorf("unmarshal file status: %w", err)
		}
		current = &updated
	}

	if current.State == "FAILED" {
		return nil, fmt.Errorf("gemini file processing failed: %s", current.Name)
	}
	return current, nil
}

// GenerateContent runs the configured model over an uploaded file plus a
// text prompt and returns the reply text.
func (c *GeminiClient) GenerateContent(ctx context.Context, file *GeminiFile, prompt string) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{FileData: &geminiFileData{FileURI: file.URI, MimeType: file.MimeType}},
				{Text: prompt},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("generating content", "model", c.model, "file", file.Name)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var generated geminiGenerateResponse
	if err := json.Unmarshal(respBody, &generated); err != nil {
		return "", fmt.Errorf("unmarshal generate response: %w", err)
	}
	if generated.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", generated.Error.Code, generated.Error.Message)
	}
	if len(generated.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in generate response")
	}

	var b strings.Builder
	for _, part := range generated.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty text in generate response")
	}
	return text, nil
}

// DeleteFile removes an uploaded file. Deletion failures are not fatal to
// the pipeline; callers typically log and continue.
func (c *GeminiClient) DeleteFile(ctx context.Context, file *GeminiFile) error {
	u := fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, file.Name, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete failed (status %d)", resp.StatusCode)
	}
	return nil
}
