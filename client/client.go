package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sagarc03/storegate"
)

const (
	// DefaultEndpoint is used when no endpoint is configured.
	DefaultEndpoint = "http://localhost:5708"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client talks to a storegate gateway over HTTP. Its methods mirror
// storegate.Service so either can back the CLI.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a Client for the gateway at endpoint. An empty endpoint
// selects DefaultEndpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("new client: %w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("new client: %w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint:   u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) url(query url.Values, segments ...string) string {
	var raw, escaped []string
	for _, s := range segments {
		for part := range strings.SplitSeq(s, "/") {
			raw = append(raw, part)
			escaped = append(escaped, url.PathEscape(part))
		}
	}

	u := *c.endpoint
	u.Path = c.endpoint.Path + "/" + strings.Join(raw, "/")
	u.RawPath = c.endpoint.EscapedPath() + "/" + strings.Join(escaped, "/")
	u.RawQuery = query.Encode()

	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseServerError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// IssueGrant asks the gateway for a write grant on object in container.
func (c *Client) IssueGrant(ctx context.Context, container, object string) (storegate.AccessGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(nil, "api/storage/blob", container, object), nil)
	if err != nil {
		return storegate.AccessGrant{}, fmt.Errorf("issue grant: %w", err)
	}

	var grant storegate.AccessGrant
	if err := c.do(req, &grant); err != nil {
		return storegate.AccessGrant{}, fmt.Errorf("issue grant: %w", err)
	}

	return grant, nil
}

// Upload streams payload to the gateway as the "file" part of a multipart
// body. object is sent as the objectName query parameter so nested names
// survive; it is also the part's file name.
func (c *Client) Upload(ctx context.Context, container, object string, payload io.Reader) (storegate.UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", object)
		if err == nil {
			_, err = io.Copy(part, payload)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	// Unblocks the writer if the server answers before draining the body.
	defer func() { _ = pr.Close() }()

	query := url.Values{"containerName": {container}, "objectName": {object}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(query, "api/storage/upload"), pr)
	if err != nil {
		return storegate.UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result storegate.UploadResult
	if err := c.do(req, &result); err != nil {
		return storegate.UploadResult{}, fmt.Errorf("upload: %w", err)
	}

	return result, nil
}

// UploadWithGrant PUTs payload to a grant URI. The URI may point at the
// gateway's own /objects routes or at a cloud provider; the Azure blob type
// header is sent unconditionally and ignored elsewhere.
func (c *Client) UploadWithGrant(ctx context.Context, grantURI string, payload io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grantURI, payload)
	if err != nil {
		return "", fmt.Errorf("upload with grant: %w", err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload with grant: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload with grant: %w", parseServerError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

type saveCustomerRequest struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type saveCustomerResponse struct {
	PartitionKey string `json:"partition_key"`
	RowKey       string `json:"row_key"`
}

// SaveCustomer inserts a customer record and returns its row key.
func (c *Client) SaveCustomer(ctx context.Context, firstName, lastName, email, phoneNumber string) (string, error) {
	body, err := json.Marshal(saveCustomerRequest{
		Name:        firstName,
		Surname:     lastName,
		Email:       email,
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		return "", fmt.Errorf("save customer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(nil, "api/storage/customer/save"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("save customer: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp saveCustomerResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("save customer: %w", err)
	}

	return resp.RowKey, nil
}

// GetCustomer reads a customer record back.
func (c *Client) GetCustomer(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	if partitionKey == "" || rowKey == "" {
		return storegate.CustomerRecord{}, fmt.Errorf("get customer: %w: partition key and row key are required", storegate.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(nil, "api/storage/customer", partitionKey, rowKey), nil)
	if err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get customer: %w", err)
	}

	var rec storegate.CustomerRecord
	if err := c.do(req, &rec); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get customer: %w", err)
	}

	return rec, nil
}

// Health reports whether the gateway answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(nil, "healthz"), nil)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}

	return nil
}

// parseServerError reads the gateway's JSON error body. Bodies from other
// servers, such as cloud providers answering a grant upload, are kept verbatim.
func parseServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

// APIError represents an error response from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error: %d - %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error: %d %s - %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the gateway's error code back to the storegate sentinel, so
// errors.Is works the same on either side of the wire.
func (e *APIError) Unwrap() error {
	if err := storegate.KindError(e.Code); err != nil {
		return err
	}
	switch {
	case e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized:
		return storegate.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return storegate.ErrNotFound
	case e.StatusCode == http.StatusServiceUnavailable:
		return storegate.ErrBackendUnavailable
	}
	return nil
}

// ErrInvalidEndpoint is returned by New for an unusable endpoint URL.
var ErrInvalidEndpoint = errors.New("invalid endpoint")
