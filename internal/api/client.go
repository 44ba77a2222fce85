package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/project-console/internal"
)

type Config struct {
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration
}

// Client is the single outbound HTTP client. It owns bearer auth, the
// `{data:T} | T` envelope tolerance and the mapping from HTTP failures to
// the AppError taxonomy; domain repositories stay shape-only.
type Client struct {
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	logger       *slog.Logger

	tokenSource      func() string
	onSessionInvalid func()
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(config.ImageBaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// SetTokenSource installs the bearer token provider. A nil source or empty
// token sends the request unauthenticated.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokenSource = fn
}

// OnSessionInvalid installs the hook fired when an authenticated request
// comes back 401/403. The hook is not fired for unauthenticated requests
// (login), where the same status means bad credentials and there is no
// session to clear.
func (c *Client) OnSessionInvalid(fn func()) {
	c.onSessionInvalid = fn
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	reader, err := encodeJSON(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", reader, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	reader, err := encodeJSON(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, "application/json", reader, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

// Upload is one file part of a multipart request.
type Upload struct {
	Field    string
	FileName string
	Content  []byte
}

// PostMultipart sends fields and files as multipart/form-data. Compose uses
// it only when attachments are present; the JSON path carries the same
// semantic fields.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, files []Upload, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return internal.NewInternalError("failed to encode form field", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return internal.NewInternalError("failed to encode attachment", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return internal.NewInternalError("failed to encode attachment", err)
		}
	}
	if err := writer.Close(); err != nil {
		return internal.NewInternalError("failed to finalize multipart body", err)
	}

	return c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), &buf, out)
}

// ImageURL resolves an attachment or avatar path against the image base URL.
// Absolute URLs pass through untouched.
func (c *Client) ImageURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return internal.NewInternalError("failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	hadToken := false
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			hadToken = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request transport failure",
			"method", method, "path", path,
			"user_id", internal.UserIDFromContext(ctx), "error", err)
		return internal.NewNetworkError("could not reach the server", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return internal.NewNetworkError("failed to read response", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Debug("server error response", "method", method, "path", path, "status", resp.StatusCode)
		return internal.NewNetworkError("server unavailable", fmt.Errorf("status %d", resp.StatusCode))
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		message := serverMessage(payload)
		if hadToken {
			// Invalidated credentials on an authenticated call: the
			// session must be cleared, not just this request failed.
			if c.onSessionInvalid != nil {
				c.onSessionInvalid()
			}
			return internal.ErrSessionExpired.WithMessage(message)
		}
		return internal.ErrInvalidCredentials.WithMessage(message)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := serverMessage(payload)
		if message == "" {
			message = "request failed"
		}
		return internal.NewRequestFailedError(message, resp.StatusCode)
	}

	return decodeEnvelope(payload, out)
}

// decodeEnvelope tolerates both `{data: T}` and bare `T` response bodies.
// This is the one place that tolerance lives.
func decodeEnvelope(payload []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if len(envelope.Data) > 0 && string(bytes.TrimSpace(envelope.Data)) != "null" {
			payload = envelope.Data
		}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return internal.NewInternalError("unexpected response shape", err)
	}
	return nil
}

func serverMessage(payload []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return ""
	}
	if wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return wrapped.Message
}

func encodeJSON(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, internal.NewInternalError("failed to encode request body", err)
	}
	return bytes.NewReader(raw), nil
}
