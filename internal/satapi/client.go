package satapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AssetService defines the asset endpoints of the texture-automation service.
// It is implemented by *Client and can be faked in tests.
type AssetService interface {
	ListAssets(ctx context.Context, query ListQuery) (AssetList, error)
	ListAllAssets(ctx context.Context, query ListQuery) ([]RawAsset, error)
	GetAsset(ctx context.Context, id string) (RawAsset, error)
	UploadAsset(ctx context.Context, req UploadRequest) (UploadResponse, error)
	UpdateAsset(ctx context.Context, id string, update AssetUpdate) (RawAsset, error)
	DeleteAsset(ctx context.Context, id string) error
	ExtractParameters(ctx context.Context, id string) (ExtractResult, error)
	GenerateThumbnail(ctx context.Context, id string, resolution int) (ThumbnailResult, error)
	Health(ctx context.Context) (HealthResponse, error)
}

// Ensure Client implements AssetService at compile time.
var _ AssetService = (*Client)(nil)

// TokenStore supplies the bearer token attached to each request. The token is
// read per request so a login from another process is picked up immediately.
type TokenStore interface {
	Token() string
	ClearToken() error
}

// Client talks to the asset HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenStore
	limiter   *rate.Limiter
	log       *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

const (
	defaultAPIURL    = "127.0.0.1:5000"
	defaultUserAgent = "matdeck/0.1"
	requestTimeout   = 120 * time.Second
	listPageSize     = 100
	maxErrorBody     = 64 << 10
)

// WithTokenStore attaches bearer authentication.
func WithTokenStore(tokens TokenStore) Option {
	return func(c *Client) { c.tokens = tokens }
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables
// limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger routes request logging to log.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the service rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// ListQuery configures GET /api/assets.
type ListQuery struct {
	Query    string
	Tags     []string
	Page     int
	PageSize int
}

func (q ListQuery) values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if query := strings.TrimSpace(q.Query); query != "" {
		values.Set("query", query)
	}
	for _, tag := range q.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			values.Add("tags", tag)
		}
	}
	return values
}

// ListAssets retrieves a single page of assets.
func (c *Client) ListAssets(ctx context.Context, query ListQuery) (AssetList, error) {
	if c == nil {
		return AssetList{}, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "/api/assets", RawQuery: query.values().Encode()}
	var payload AssetList
	if err := c.doJSON(ctx, "list assets", http.MethodGet, rel, nil, &payload); err != nil {
		return AssetList{}, err
	}
	return payload, nil
}

// ListAllAssets walks every page and returns the complete collection.
func (c *Client) ListAllAssets(ctx context.Context, query ListQuery) ([]RawAsset, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if query.PageSize <= 0 {
		query.PageSize = listPageSize
	}
	query.Page = 1
	var all []RawAsset
	for {
		page, err := c.ListAssets(ctx, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || page.TotalPages <= query.Page {
			break
		}
		query.Page++
	}
	if all == nil {
		all = []RawAsset{}
	}
	return all, nil
}

// GetAsset retrieves one asset by id.
func (c *Client) GetAsset(ctx context.Context, id string) (RawAsset, error) {
	if c == nil {
		return RawAsset{}, fmt.Errorf("client is nil")
	}
	var payload RawAsset
	if err := c.doJSON(ctx, "get asset", http.MethodGet, assetPath(id), nil, &payload); err != nil {
		return RawAsset{}, err
	}
	return payload, nil
}

// UploadRequest describes a source file to upload.
type UploadRequest struct {
	FileName    string
	Content     io.Reader
	Name        string
	Description string
	Tags        []string
}

// UploadAsset posts a multipart upload. The body is streamed so large
// archives are never held in memory.
func (c *Client) UploadAsset(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	if c == nil {
		return UploadResponse{}, fmt.Errorf("client is nil")
	}
	if req.Content == nil {
		return UploadResponse{}, &APIError{Op: "upload asset", Message: "No file provided"}
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, req))
	}()
	defer func() { _ = pr.Close() }()

	var payload UploadResponse
	rel := &url.URL{Path: "/api/assets/upload"}
	if err := c.do(ctx, "upload asset", http.MethodPost, rel, pr, mw.FormDataContentType(), &payload); err != nil {
		return UploadResponse{}, err
	}
	return payload, nil
}

func writeUploadForm(mw *multipart.Writer, req UploadRequest) error {
	part, err := mw.CreateFormFile("file", filepath.Base(req.FileName))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		if err := mw.WriteField("name", name); err != nil {
			return err
		}
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		if err := mw.WriteField("description", desc); err != nil {
			return err
		}
	}
	if len(req.Tags) > 0 {
		tags, err := json.Marshal(req.Tags)
		if err != nil {
			return err
		}
		if err := mw.WriteField("tags", string(tags)); err != nil {
			return err
		}
	}
	return mw.Close()
}

// UpdateAsset applies a partial update and returns the stored record.
func (c *Client) UpdateAsset(ctx context.Context, id string, update AssetUpdate) (RawAsset, error) {
	if c == nil {
		return RawAsset{}, fmt.Errorf("client is nil")
	}
	var payload RawAsset
	if err := c.doJSON(ctx, "update asset", http.MethodPut, assetPath(id), update, &payload); err != nil {
		return RawAsset{}, err
	}
	return payload, nil
}

// DeleteAsset removes an asset and its files.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.doJSON(ctx, "delete asset", http.MethodDelete, assetPath(id), nil, nil)
}

// ExtractParameters asks the service to read the asset's input parameters.
func (c *Client) ExtractParameters(ctx context.Context, id string) (ExtractResult, error) {
	if c == nil {
		return ExtractResult{}, fmt.Errorf("client is nil")
	}
	rel := assetPath(id, "extract-parameters")
	var payload ExtractResult
	if err := c.doJSON(ctx, "extract parameters", http.MethodPost, rel, struct{}{}, &payload); err != nil {
		return ExtractResult{}, err
	}
	return payload, nil
}

// GenerateThumbnail renders a preview at the given square resolution.
// Zero lets the service pick its default.
func (c *Client) GenerateThumbnail(ctx context.Context, id string, resolution int) (ThumbnailResult, error) {
	if c == nil {
		return ThumbnailResult{}, fmt.Errorf("client is nil")
	}
	body := map[string]int{}
	if resolution > 0 {
		body["resolution"] = resolution
	}
	rel := assetPath(id, "generate-thumbnail")
	var payload ThumbnailResult
	if err := c.doJSON(ctx, "generate thumbnail", http.MethodPost, rel, body, &payload); err != nil {
		return ThumbnailResult{}, err
	}
	return payload, nil
}

// Health pings the service.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	if c == nil {
		return HealthResponse{}, fmt.Errorf("client is nil")
	}
	var payload HealthResponse
	if err := c.doJSON(ctx, "health", http.MethodGet, &url.URL{Path: "/api/health"}, nil, &payload); err != nil {
		return HealthResponse{}, err
	}
	return payload, nil
}

func assetPath(id string, action ...string) *url.URL {
	segments := append([]string{"/api/assets", strings.TrimSpace(id)}, action...)
	return &url.URL{Path: strings.Join(segments, "/")}
}

func (c *Client) doJSON(ctx context.Context, op, method string, rel *url.URL, in, dest any) error {
	if in == nil {
		return c.do(ctx, op, method, rel, nil, "", dest)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("encode request: %v", err), Err: err}
	}
	return c.do(ctx, op, method, rel, bytes.NewReader(payload), "application/json", dest)
}

func (c *Client) do(ctx context.Context, op, method string, rel *url.URL, body io.Reader, contentType string, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return newTransportError(op, err)
		}
	}

	reqURL := c.resolve(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return newTransportError(op, fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.log.With(
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", rel.Path),
		zap.String("request_id", requestID),
	)
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return newTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.Debug("request complete",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newStatusError(op, resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			if err := c.tokens.ClearToken(); err != nil {
				log.Warn("clear token failed", zap.Error(err))
			}
		}
		log.Warn("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return &APIError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decode response: %v", err),
			Err:     err,
		}
	}
	return nil
}

func (c *Client) resolve(rel *url.URL) *url.URL {
	out := *c.baseURL
	out.Path = c.baseURL.Path + rel.Path
	out.RawQuery = rel.RawQuery
	return &out
}

// parseBaseURL normalizes the configured service root. A path prefix is kept
// so the service can sit behind a reverse proxy.
func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
