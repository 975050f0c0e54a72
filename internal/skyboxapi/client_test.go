package skyboxapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server, opts ...Option) *Client {
	return NewClient(server.URL, append([]Option{WithHTTPClient(server.Client())}, opts...)...)
}

func TestStyles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/skybox/getSkyboxStyles" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected X-Request-Id header")
		}
		w.Write([]byte(`[
			{"id": 1, "name": "Fantasy", "model": "Model 2", "description": "Lush", "image_jpg": "https://x/1.jpg"},
			{"id": 2, "name": "Anime", "model": "Model 3"}
		]`))
	}))
	defer server.Close()

	styles, err := newTestClient(server).Styles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(styles) != 2 {
		t.Fatalf("expected 2 styles, got %d", len(styles))
	}
	if styles[0].ImageURL() != "https://x/1.jpg" || !styles[0].HasPreview() {
		t.Errorf("unexpected first style: %+v", styles[0])
	}
	if styles[1].HasPreview() {
		t.Errorf("style without image_jpg should have no preview: %+v", styles[1])
	}
	if styles[0].Label() != "Fantasy (Model: Model 2)" {
		t.Errorf("unexpected label %q", styles[0].Label())
	}
}

func TestStylesCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"id": 1, "name": "Fantasy", "model": "Model 2"}]`))
	}))
	defer server.Close()

	client := newTestClient(server, WithStyleCacheTTL(time.Minute))
	for i := 0; i < 3; i++ {
		if _, err := client.Styles(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 request with caching, got %d", got)
	}

	client.InvalidateStyles()
	if _, err := client.Styles(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected refetch after invalidation, got %d requests", got)
	}
}

func TestStylesCachedCopy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "name": "Fantasy", "model": "Model 2"}]`))
	}))
	defer server.Close()

	client := newTestClient(server, WithStyleCacheTTL(time.Minute))
	first, err := client.Styles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first[0].Name = "changed"

	second, err := client.Styles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[0].Name != "Fantasy" {
		t.Errorf("cached name = %q, want Fantasy", second[0].Name)
	}
	second[0].Name = "changed again"

	third, _ := client.Styles(context.Background())
	if third[0].Name != "Fantasy" {
		t.Errorf("cached name = %q, want Fantasy", third[0].Name)
	}
}

func TestStylesCacheDisabled(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server, WithStyleCacheTTL(0))
	client.Styles(context.Background())
	client.Styles(context.Background())
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 requests without caching, got %d", got)
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/imagine/generateImagine" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["prompt"] != "a quiet forest" {
			t.Errorf("unexpected prompt: %v", body["prompt"])
		}
		if body["skybox_style_id"] != float64(3) {
			t.Errorf("unexpected style id: %v", body["skybox_style_id"])
		}
		if v, ok := body["negative_text"]; !ok || v != nil {
			t.Errorf("expected negative_text to be null, got %v (present=%v)", v, ok)
		}
		w.Write([]byte(`{"id": 42}`))
	}))
	defer server.Close()

	handle, err := newTestClient(server).Generate(context.Background(), GenerateRequest{Prompt: "a quiet forest", StyleID: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "42" {
		t.Errorf("expected handle 42, got %s", handle)
	}
}

func TestGenerateStringHandleAndNegativeText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body GenerateRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.NegativeText == nil || *body.NegativeText != "people" {
			t.Errorf("expected negative_text=people, got %v", body.NegativeText)
		}
		w.Write([]byte(`{"id": "job-abc"}`))
	}))
	defer server.Close()

	neg := "people"
	handle, err := newTestClient(server).Generate(context.Background(), GenerateRequest{Prompt: "p", StyleID: 1, NegativeText: &neg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "job-abc" {
		t.Errorf("expected job-abc, got %s", handle)
	}
}

func TestGenerateMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Generate(context.Background(), GenerateRequest{Prompt: "p", StyleID: 1})
	if err == nil || !strings.Contains(err.Error(), "no id") {
		t.Errorf("expected missing id error, got %v", err)
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Generate(context.Background(), GenerateRequest{Prompt: "p", StyleID: 1})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "upstream down" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestImagine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/imagine/getImagineById" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "42" {
			t.Errorf("unexpected id: %s", r.URL.Query().Get("id"))
		}
		w.Write([]byte(`{"status": "complete", "file_url": "https://x/img.jpg", "title": "Forest", "prompt": "a quiet forest"}`))
	}))
	defer server.Close()

	status, err := newTestClient(server).Imagine(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Complete() || status.Failed() {
		t.Errorf("expected complete status, got %+v", status)
	}
	d := status.Descriptor()
	if d.ImageURL != "https://x/img.jpg" || d.Title != "Forest" || d.Prompt != "a quiet forest" {
		t.Errorf("unexpected descriptor: %+v", d)
	}
}

func TestImagineStatusFailed(t *testing.T) {
	tests := []struct {
		name   string
		status ImagineStatus
		want   bool
	}{
		{"explicit failure", ImagineStatus{Status: "failed"}, true},
		{"error message only", ImagineStatus{Status: "pending", ErrorMessage: "content policy violation"}, true},
		{"pending", ImagineStatus{Status: "pending"}, false},
		{"complete", ImagineStatus{Status: "complete", FileURL: "u"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStyleLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/skybox/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"name": "Sci-Fi", "model": "Model 3", "image": "https://x/7.jpg"}`))
	}))
	defer server.Close()

	style, err := newTestClient(server).Style(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if style.ID != 7 || style.ImageURL() != "https://x/7.jpg" {
		t.Errorf("unexpected style: %+v", style)
	}
	if d := style.Descriptor(); d.ID != 7 || d.Title != "Sci-Fi" || !d.Renderable() {
		t.Errorf("unexpected descriptor: %+v", d)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(server)
	server.Close()

	if _, err := client.Imagine(context.Background(), "1"); err == nil {
		t.Error("expected transport error after server shutdown")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("truncate long = %q", got)
	}
}
