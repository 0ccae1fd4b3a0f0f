package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	AirtableBaseURL = "https://api.airtable.com/v0"

	// deleteBatchSize is Airtable's maximum records-per-delete.
	deleteBatchSize = 10

	retryAttempts = 4
	retryDelay    = 2 * time.Second
)

// ClientConfig configures the Airtable client.
type ClientConfig struct {
	Token      string
	BaseID     string
	Table      string
	BaseURL    string
	Timeout    time.Duration
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Client reads and writes scene records in one Airtable table.
type Client struct {
	token      string
	baseURL    string
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// NewClient creates an Airtable client scoped to a single base and table.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AirtableBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = retryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		token:      cfg.Token,
		baseURL:    fmt.Sprintf("%s/%s/%s", cfg.BaseURL, cfg.BaseID, url.PathEscape(cfg.Table)),
		retryDelay: cfg.RetryDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type recordsEnvelope struct {
	Records []Record `json:"records"`
}

// transientError marks responses worth retrying (rate limits, 5xx).
type transientError struct {
	status int
	body   string
}

func (e *transientError) Error() string {
	return fmt.Sprintf("airtable transient error (status %d): %s", e.status, e.body)
}

// ListProject fetches all records for a project, following offset
// pagination until the table is exhausted.
func (c *Client) ListProject(ctx context.Context, project string) ([]Record, error) {
	formula := fmt.Sprintf("{%s}='%s'", FieldProjectName, strings.ReplaceAll(project, "'", "\\'"))

	var all []Record
	offset := ""
	for {
		q := url.Values{}
		q.Set("filterByFormula", formula)
		if offset != "" {
			q.Set("offset", offset)
		}

		var page listResponse
		err := c.do(ctx, http.MethodGet, "?"+q.Encode(), nil, &page)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}

		all = append(all, page.Records...)
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	c.logger.Debug("listed scene records", "project", project, "count", len(all))
	return all, nil
}

// Create inserts one record and returns it with its assigned ID.
func (c *Client) Create(ctx context.Context, fields Fields) (*Record, error) {
	body := recordsEnvelope{Records: []Record{{Fields: fields}}}
	var created recordsEnvelope
	if err := c.do(ctx, http.MethodPost, "", body, &created); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	if len(created.Records) == 0 {
		return nil, errors.New("create returned no records")
	}
	return &created.Records[0], nil
}

// Update patches the given fields on an existing record. Attachment
// fields replace the whole cell, so callers pass the full attachment
// list they want to keep.
func (c *Client) Update(ctx context.Context, recordID string, fields Fields) error {
	body := map[string]any{"fields": fields}
	if err := c.do(ctx, http.MethodPatch, "/"+recordID, body, nil); err != nil {
		return fmt.Errorf("update record %s: %w", recordID, err)
	}
	return nil
}

// AttachImage replaces the start image cell with a single hosted URL.
func (c *Client) AttachImage(ctx context.Context, recordID, imageURL, filename string) error {
	return c.Update(ctx, recordID, Fields{
		StartImage: []Attachment{{URL: imageURL, Filename: filename}},
	})
}

// AttachVideo replaces the scene video cell with a single hosted URL.
func (c *Client) AttachVideo(ctx context.Context, recordID, videoURL, filename string) error {
	return c.Update(ctx, recordID, Fields{
		SceneVideo: []Attachment{{URL: videoURL, Filename: filename}},
	})
}

// DeleteAll removes every record for a project, in batches of ten.
func (c *Client) DeleteAll(ctx context.Context, project string) (int, error) {
	records, err := c.ListProject(ctx, project)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(records); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(records))

		q := url.Values{}
		for _, r := range records[start:end] {
			q.Add("records[]", r.ID)
		}
		if err := c.do(ctx, http.MethodDelete, "?"+q.Encode(), nil, nil); err != nil {
			return deleted, fmt.Errorf("delete batch: %w", err)
		}
		deleted += end - start
	}

	c.logger.Info("deleted scene records", "project", project, "count", deleted)
	return deleted, nil
}

// do runs one authenticated request with retries on rate limits, server
// errors, and network failures. Other 4xx responses fail immediately.
func (c *Client) do(ctx context.Context, method, suffix string, reqBody, respBody any) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	return retry.Do(
		func() error {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+suffix, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+c.token)
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return err
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return &transientError{status: resp.StatusCode, body: string(data)}
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("airtable error (status %d): %s", resp.StatusCode, string(data)))
			}

			if respBody != nil {
				if err := json.Unmarshal(data, respBody); err != nil {
					return retry.Unrecoverable(fmt.Errorf("unmarshal response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("airtable retry", "attempt", n+1, "err", err)
		}),
	)
}
