package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dialer/internal/api"
	"dialer/internal/config"
	"dialer/internal/logging"
	"dialer/internal/metrics"
)

const (
	userAgent     = "dialer/0.1.0"
	maxErrorBody  = 64 * 1024
	uploadField   = "file"
	requestHeader = "X-Request-ID"
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIToken string
	// Timeout applies to REST calls only; the update stream never times out.
	Timeout time.Duration
	HTTP    HTTPDoer
	Stream  HTTPDoer
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Client provides typed access to the calling backend.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
	stream  HTTPDoer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a Client for the given base URL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: backend base url is empty", ErrValidation)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""

	restClient := opts.HTTP
	if restClient == nil {
		restClient = &http.Client{Timeout: opts.Timeout}
	}
	streamClient := opts.Stream
	if streamClient == nil {
		// No timeout: the update stream stays open until the caller cancels.
		streamClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		token:   strings.TrimSpace(opts.APIToken),
		http:    restClient,
		stream:  streamClient,
		logger:  logging.NewComponentLogger(opts.Logger, "backend"),
		metrics: opts.Metrics,
	}, nil
}

// NewFromConfig builds a Client from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	return New(Options{
		BaseURL:  cfg.Backend.BaseURL,
		APIToken: cfg.Backend.APIToken,
		Timeout:  cfg.RequestTimeout(),
		Logger:   logger,
		Metrics:  m,
	})
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListBusinesses returns the full directory in server order.
func (c *Client) ListBusinesses(ctx context.Context) ([]api.Business, error) {
	var out []api.Business
	if err := c.getJSON(ctx, "businesses", "/api/businesses", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []api.Business{}
	}
	return out, nil
}

// UploadCSV submits a directory file for ingestion.
func (c *Client) UploadCSV(ctx context.Context, filename string, content io.Reader) error {
	return c.upload(ctx, "upload-csv", "/api/upload-csv", filename, "text/csv", content)
}

// ClearDatabase deletes every business on the backend.
func (c *Client) ClearDatabase(ctx context.Context) error {
	resp, err := c.send(ctx, c.http, "clear-database", http.MethodDelete, "/api/clear-database", nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// ExportCSV opens the CSV export stream. The caller closes the reader.
func (c *Client) ExportCSV(ctx context.Context) (io.ReadCloser, error) {
	// Exports can be large; use the stream client so the REST timeout does not cut them off.
	resp, err := c.send(ctx, c.stream, "export-csv", http.MethodGet, "/api/export-csv", nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CallAll starts the bulk call run and returns the backend's status message.
func (c *Client) CallAll(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, c.http, "call-all", http.MethodPost, "/api/call-all", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload api.CallAllResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode call-all response: %w", err)
	}
	return payload.Message, nil
}

// SubscribeUpdates opens the server-sent business update stream.
func (c *Client) SubscribeUpdates(ctx context.Context) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/business-updates", nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.execute(c.stream, "business-updates", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ListAssets returns every stored recording.
func (c *Client) ListAssets(ctx context.Context) ([]api.Asset, error) {
	var out []api.Asset
	if err := c.getJSON(ctx, "assets", "/api/assets", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []api.Asset{}
	}
	return out, nil
}

// SetActiveAsset marks key as the recording used for outbound calls.
func (c *Client) SetActiveAsset(ctx context.Context, key string) error {
	resp, err := c.send(ctx, c.http, "assets-set-active", http.MethodPost, "/api/assets/set-active/"+url.PathEscape(key), nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// DeleteAsset removes a stored recording.
func (c *Client) DeleteAsset(ctx context.Context, key string) error {
	resp, err := c.send(ctx, c.http, "assets-delete", http.MethodDelete, "/api/assets/"+url.PathEscape(key), nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// UploadRecording stores a new voice recording.
func (c *Client) UploadRecording(ctx context.Context, filename string, content io.Reader) error {
	return c.upload(ctx, "upload-recording", "/api/upload-recording", filename, "audio/wav", content)
}

// GenerateRecordings asks the backend to synthesize the standard recording set.
func (c *Client) GenerateRecordings(ctx context.Context) error {
	resp, err := c.send(ctx, c.http, "generate-recordings", http.MethodPost, "/api/generate-recordings", nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// AccountInfo returns the telephony account summary.
func (c *Client) AccountInfo(ctx context.Context) (api.AccountInfo, error) {
	var out api.AccountInfo
	if err := c.getJSON(ctx, "twilio-info", "/api/twilio-info", &out); err != nil {
		return api.AccountInfo{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, dest any) error {
	resp, err := c.send(ctx, c.http, endpoint, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, endpoint, path, filename, contentType string, content io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := createFilePart(writer, filename, contentType)
	if err != nil {
		return fmt.Errorf("build %s form: %w", endpoint, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read %s payload: %w", endpoint, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish %s form: %w", endpoint, err)
	}

	resp, err := c.send(ctx, c.http, endpoint, http.MethodPost, path, &body, writer.FormDataContentType())
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func createFilePart(writer *multipart.Writer, filename, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, filename))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

func (c *Client) send(ctx context.Context, doer HTTPDoer, endpoint, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.execute(doer, endpoint, req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestHeader, requestID)
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) execute(doer HTTPDoer, endpoint string, req *http.Request) (*http.Response, error) {
	started := time.Now()
	requestID := req.Header.Get(requestHeader)

	resp, err := doer.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, "transport_error", time.Since(started))
		c.logger.Debug("backend request failed",
			logging.Operation(endpoint),
			logging.String(logging.FieldRequestID, requestID),
			logging.Error(err),
		)
		return nil, transportError(endpoint, err)
	}
	c.metrics.ObserveRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serverErr := &ServerError{Endpoint: endpoint, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		resp.Body.Close()
		c.logger.Debug("backend request rejected",
			logging.Operation(endpoint),
			logging.String(logging.FieldRequestID, requestID),
			logging.Int("status", resp.StatusCode),
			logging.String("server_message", serverErr.Message),
		)
		return nil, serverErr
	}
	return resp, nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(payload.Message)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
