package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	KieBaseURL   = "https://api.kie.ai"
	KieUploadURL = "https://kieai.redpandaai.co/api/file-stream-upload"

	createTaskPath = "/api/v1/jobs/createTask"
	recordInfoPath = "/api/v1/jobs/recordInfo"

	// uploadPath is the remote folder reference images are stored under.
	uploadFolder = "creative-cloner"
)

// TaskState is the remote state of a generation task.
type TaskState string

const (
	StateWaiting    TaskState = "waiting"
	StateQueuing    TaskState = "queuing"
	StateGenerating TaskState = "generating"
	StateSuccess    TaskState = "success"
	StateFail       TaskState = "fail"
)

// Terminal reports whether no further polling should occur.
func (s TaskState) Terminal() bool {
	return s == StateSuccess || s == StateFail
}

// TaskInput is the input payload of a generation request. Optional fields
// are omitted for models whose capability descriptor does not support them.
type TaskInput struct {
	Prompt          string   `json:"prompt"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"`
	Resolution      string   `json:"resolution,omitempty"`
	OutputFormat    string   `json:"output_format,omitempty"`
	ImageInput      []string `json:"image_input,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	NFrames         string   `json:"n_frames,omitempty"`
	RemoveWatermark bool     `json:"remove_watermark,omitempty"`
	UploadMethod    string   `json:"upload_method,omitempty"`
}

// TaskRequest is the createTask request body.
type TaskRequest struct {
	Model string    `json:"model"`
	Input TaskInput `json:"input"`
}

// TaskStatus is one observation of a task from the recordInfo endpoint.
type TaskStatus struct {
	TaskID     string
	State      TaskState
	ResultURLs []string
	FailCode   string
	FailMsg    string
}

// Kie API wire types.

type createTaskResponse struct {
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordInfoResponse struct {
	Data struct {
		TaskID     string `json:"taskId"`
		State      string `json:"state"`
		ResultJSON string `json:"resultJson"`
		FailCode   string `json:"failCode"`
		FailMsg    string `json:"failMsg"`
	} `json:"data"`
}

type taskResult struct {
	ResultURLs []string `json:"resultUrls"`
}

type uploadResponse struct {
	Data struct {
		DownloadURL string `json:"downloadUrl"`
		FileURL     string `json:"fileUrl"`
	} `json:"data"`
}

// KieConfig configures the Kie.ai client.
type KieConfig struct {
	APIKey    string
	BaseURL   string
	UploadURL string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// KieClient submits generation tasks to Kie.ai and polls them to a
// terminal state. One client serves both image and video models; the
// payload differences live in the model capability descriptors.
type KieClient struct {
	apiKey    string
	baseURL   string
	uploadURL string
	client    *http.Client
	logger    *slog.Logger
}

// NewKieClient creates a Kie.ai client.
func NewKieClient(cfg KieConfig) *KieClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = KieBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = KieUploadURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &KieClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		uploadURL: cfg.UploadURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}
}

// CreateTask submits a generation request and returns the remote task ID.
// 4xx responses come back as *RequestError and must not be resubmitted
// as-is; network failures and 5xx responses are transport errors and may
// be retried by the caller.
func (c *KieClient) CreateTask(ctx context.Context, task *TaskRequest) (string, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTaskPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	c.logger.Info("creating generation task",
		"model", task.Model,
		"prompt_len", len(task.Input.Prompt),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create task request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read create task response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var created createTaskResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("unmarshal create task response: %w", err)
	}
	if created.Data.TaskID == "" {
		return "", fmt.Errorf("no taskId in create task response: %s", string(respBody))
	}

	c.logger.Info("task created", "task_id", created.Data.TaskID)
	return created.Data.TaskID, nil
}

// GetTask fetches the current status of a task. On success the
// string-encoded resultJson payload is decoded into result URLs.
func (c *KieClient) GetTask(ctx context.Context, taskID string) (*TaskStatus, error) {
	u := fmt.Sprintf("%s%s?taskId=%s", c.baseURL, recordInfoPath, url.QueryEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var record recordInfoResponse
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, fmt.Errorf("unmarshal poll response: %w", err)
	}

	status := &TaskStatus{
		TaskID:   record.Data.TaskID,
		State:    TaskState(record.Data.State),
		FailCode: record.Data.FailCode,
		FailMsg:  record.Data.FailMsg,
	}

	if status.State == StateSuccess {
		var result taskResult
		if record.Data.ResultJSON != "" {
			if err := json.Unmarshal([]byte(record.Data.ResultJSON), &result); err != nil {
				return nil, fmt.Errorf("unmarshal resultJson: %w", err)
			}
		}
		if len(result.ResultURLs) == 0 {
			return nil, fmt.Errorf("no resultUrls in completed task %s", taskID)
		}
		status.ResultURLs = result.ResultURLs
	}

	return status, nil
}

// UploadFile uploads a local file to Kie's file hosting and returns its
// public URL, for use as a reference image input.
func (c *KieClient) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy upload file: %w", err)
	}
	if err := w.WriteField("uploadPath", uploadFolder); err != nil {
		return "", err
	}
	if err := w.WriteField("fileName", filepath.Base(path)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info("uploading reference image", "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var uploaded uploadResponse
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", fmt.Errorf("unmarshal upload response: %w", err)
	}

	fileURL := uploaded.Data.DownloadURL
	if fileURL == "" {
		fileURL = uploaded.Data.FileURL
	}
	if fileURL == "" {
		return "", fmt.Errorf("no downloadUrl/fileUrl in upload response: %s", string(respBody))
	}

	c.logger.Info("reference image uploaded", "url", fileURL)
	return fileURL, nil
}

// classifyStatus maps an HTTP status to the error taxonomy: 4xx is a
// permanent rejection, everything else is transport-level and retryable.
func classifyStatus(status int, body []byte) error {
	if status >= 400 && status < 500 {
		msg := string(body)
		switch status {
		case http.StatusPaymentRequired:
			msg = "insufficient credits, add credits to your Kie.ai account"
		case http.StatusUnprocessableEntity:
			msg = "invalid parameters: " + string(body)
		case http.StatusTooManyRequests:
			msg = "rate limited, wait a moment and try again"
		}
		return &RequestError{StatusCode: status, Message: msg}
	}
	return fmt.Errorf("server error (status %d): %s", status, string(body))
}
