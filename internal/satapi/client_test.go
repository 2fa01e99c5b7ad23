package satapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type memTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memTokens) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *memTokens) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIURL)
	}

	u, err = parseBaseURL("https://example.com:1234/sat/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != "https://example.com:1234/sat" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestClient_ListAllAssetsFollowsPagesAndEncodesQuery(t *testing.T) {
	t.Parallel()

	var pages []string
	var gotTags []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assets" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		pages = append(pages, q.Get("page"))
		gotTags = q["tags"]
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("page") {
		case "1":
			_ = json.NewEncoder(w).Encode(AssetList{Items: []RawAsset{{ID: "a", FileType: "sbs"}}, Page: 1, TotalPages: 2})
		default:
			_ = json.NewEncoder(w).Encode(AssetList{Items: []RawAsset{{ID: "b", FileType: "sbsar"}}, Page: 2, TotalPages: 2})
		}
	})

	items, err := c.ListAllAssets(testContext(t), ListQuery{Query: "wood", Tags: []string{"pbr", " ", "floor"}})
	if err != nil {
		t.Fatalf("ListAllAssets returned error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("items = %#v, want a then b", items)
	}
	if strings.Join(pages, ",") != "1,2" {
		t.Fatalf("pages requested = %v, want 1,2", pages)
	}
	if strings.Join(gotTags, ",") != "pbr,floor" {
		t.Fatalf("tags = %v, want pbr,floor", gotTags)
	}
}

func TestClient_ListAllAssetsEmptyCollection(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[],"total":0,"page":1,"pageSize":100,"totalPages":0}`)
	})
	items, err := c.ListAllAssets(testContext(t), ListQuery{})
	if err != nil {
		t.Fatalf("ListAllAssets returned error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("items = %#v, want empty non-nil slice", items)
	}
}

func TestClient_SendsHeadersAndBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth, gotUA, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}, WithTokenStore(&memTokens{token: "secret"}))

	health, err := c.Health(testContext(t))
	if err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("status = %q, want ok", health.Status)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotUA != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUA, defaultUserAgent)
	}
	if len(gotRequestID) != 36 {
		t.Fatalf("X-Request-ID = %q, want uuid", gotRequestID)
	}
}

func TestClient_UnauthorizedClearsToken(t *testing.T) {
	t.Parallel()

	tokens := &memTokens{token: "stale"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Token expired"}`)
	}, WithTokenStore(tokens))

	_, err := c.GetAsset(testContext(t), "a1")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if err.Error() != "Token expired" {
		t.Fatalf("message = %q, want server message", err.Error())
	}
	if tokens.Token() != "" || tokens.cleared != 1 {
		t.Fatalf("token not cleared: %q cleared=%d", tokens.Token(), tokens.cleared)
	}
}

func TestClient_ErrorMessagePrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusNotFound, `{"error":"Asset not found"}`, "Asset not found"},
		{"nested error", http.StatusBadRequest, `{"error":{"message":"bad tags"}}`, "bad tags"},
		{"message field", http.StatusConflict, `{"message":"already exists"}`, "already exists"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, FallbackMessage},
		{"empty body", http.StatusInternalServerError, ``, FallbackMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := c.DeleteAsset(testContext(t), "a1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T %v", err, err)
			}
			if apiErr.Message != tt.want {
				t.Fatalf("message = %q, want %q", apiErr.Message, tt.want)
			}
			if apiErr.Status != tt.status {
				t.Fatalf("status = %d, want %d", apiErr.Status, tt.status)
			}
		})
	}
}

func TestClient_TransportErrorUsesTransportText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(url)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.ListAssets(testContext(t), ListQuery{})
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if err.Error() == "" || err.Error() == FallbackMessage {
		t.Fatalf("message = %q, want transport text", err.Error())
	}
}

func TestClient_DecodeErrorIsReported(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items": [`)
	})
	_, err := c.ListAssets(testContext(t), ListQuery{})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestClient_UploadSendsMultipartForm(t *testing.T) {
	t.Parallel()

	var gotName, gotTags, gotFile, gotFilename string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/assets/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotName = r.FormValue("name")
		gotTags = r.FormValue("tags")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		gotFilename = header.Filename
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"new","name":"Brick","fileType":"sbsar","sourceFile":"brick.sbsar",
			"autoProcess":{"parameters":{"success":true},"thumbnail":{"success":false,"error":"render failed"}}}`)
	})

	resp, err := c.UploadAsset(testContext(t), UploadRequest{
		FileName: "/tmp/brick.sbsar",
		Content:  strings.NewReader("archive-bytes"),
		Name:     "Brick",
		Tags:     []string{"masonry", "pbr"},
	})
	if err != nil {
		t.Fatalf("UploadAsset returned error: %v", err)
	}
	if resp.ID != "new" || resp.FileType != "sbsar" {
		t.Fatalf("response = %#v", resp.RawAsset)
	}
	if resp.AutoProcess == nil || !resp.AutoProcess.Parameters.Success || resp.AutoProcess.Thumbnail.Error != "render failed" {
		t.Fatalf("autoProcess = %#v", resp.AutoProcess)
	}
	if gotName != "Brick" || gotTags != `["masonry","pbr"]` {
		t.Fatalf("form fields name=%q tags=%q", gotName, gotTags)
	}
	if gotFile != "archive-bytes" || gotFilename != "brick.sbsar" {
		t.Fatalf("file part = %q (%q)", gotFile, gotFilename)
	}
}

func TestClient_ActionEndpoints(t *testing.T) {
	t.Parallel()

	var gotResolution int
	var gotUpdate map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/assets/a1/extract-parameters":
			_, _ = io.WriteString(w, `{"success":true,"parameters":{"roughness":0.5},"asset":{"id":"a1","fileType":"sbs","hasParameters":true}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/assets/a1/generate-thumbnail":
			var body struct {
				Resolution int `json:"resolution"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotResolution = body.Resolution
			_, _ = io.WriteString(w, `{"success":true,"thumbnailUrl":"/static/assets/a1/thumb.png"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/assets/a1":
			_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
			_, _ = io.WriteString(w, `{"id":"a1","fileType":"sbs","name":"Renamed"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := testContext(t)

	extract, err := c.ExtractParameters(ctx, "a1")
	if err != nil {
		t.Fatalf("ExtractParameters returned error: %v", err)
	}
	if !extract.Success || extract.Asset == nil || !extract.Asset.HasParameters {
		t.Fatalf("extract = %#v", extract)
	}

	thumb, err := c.GenerateThumbnail(ctx, "a1", 512)
	if err != nil {
		t.Fatalf("GenerateThumbnail returned error: %v", err)
	}
	if thumb.ThumbnailURL != "/static/assets/a1/thumb.png" || gotResolution != 512 {
		t.Fatalf("thumbnail = %#v resolution=%d", thumb, gotResolution)
	}

	name := "Renamed"
	updated, err := c.UpdateAsset(ctx, "a1", AssetUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateAsset returned error: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("updated name = %q", updated.Name)
	}
	if _, ok := gotUpdate["description"]; ok {
		t.Fatalf("nil description was sent: %v", gotUpdate)
	}
	if gotUpdate["name"] != "Renamed" {
		t.Fatalf("update body = %v", gotUpdate)
	}
}

func TestClient_KeepsBasePathPrefix(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL + "/sat/")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.Health(testContext(t)); err != nil {
		t.Fatalf("Health returned error: %v", err)
	}
	if gotPath != "/sat/api/health" {
		t.Fatalf("path = %q, want /sat/api/health", gotPath)
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}, WithRateLimit(0.001))

	ctx := testContext(t)
	if _, err := c.Health(ctx); err != nil {
		t.Fatalf("first Health returned error: %v", err)
	}
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := c.Health(short); !IsTransport(err) {
		t.Fatalf("expected limiter wait to fail as transport error, got %v", err)
	}
}

func TestNilClientReturnsError(t *testing.T) {
	var c *Client
	if _, err := c.ListAssets(context.Background(), ListQuery{}); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if err := c.DeleteAsset(context.Background(), "x"); err == nil {
		t.Fatalf("expected error from nil client")
	}
}
