package translator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crowdflux/DeckLingo-AI/config"
	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/crowdflux/DeckLingo-AI/testutil"
	"github.com/rs/zerolog"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		BaseURL:         baseURL,
		KeyID:           "key-id",
		Key:             "key-secret",
		PollInterval:    time.Millisecond,
		JobDeadline:     time.Second,
		SubmitTimeout:   2 * time.Second,
		StatusTimeout:   2 * time.Second,
		FetchTimeout:    2 * time.Second,
		BreakerCooldown: time.Minute,
	}
}

func writeUpload(t *testing.T, content string) models.TranslationRequest {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.bin")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return models.TranslationRequest{
		SourceLang:   "ko",
		TargetLang:   "en",
		FilePath:     path,
		OriginalName: "report.pptx",
	}
}

func TestClientSubmit(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	id, err := client.Submit(context.Background(), writeUpload(t, "slide bytes"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q, want 42", id)
	}

	subs := fake.Submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
	sub := subs[0]
	if sub.KeyID != "key-id" || sub.Key != "key-secret" {
		t.Errorf("credential headers = %q/%q", sub.KeyID, sub.Key)
	}
	if sub.Source != "ko" || sub.Target != "en" {
		t.Errorf("languages = %q -> %q", sub.Source, sub.Target)
	}
	if sub.Filename != "report.pptx" || string(sub.Content) != "slide bytes" {
		t.Errorf("file = %q (%q)", sub.Filename, sub.Content)
	}
}

func TestClientSubmitNumericID(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.SubmitBody = `{"data":{"requestId":42}}`
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	id, err := client.Submit(context.Background(), writeUpload(t, "x"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q, want 42", id)
	}
}

func TestClientSubmitInvalidResponse(t *testing.T) {
	for name, body := range map[string]string{
		"missing id":   `{"data":{}}`,
		"missing data": `{"message":"ok"}`,
		"empty id":     `{"data":{"requestId":""}}`,
		"not json":     `<html>gateway</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			fake := testutil.NewFakePapago(t)
			fake.SubmitBody = body
			client := NewClient(testConfig(fake.URL), zerolog.Nop())

			_, err := client.Submit(context.Background(), writeUpload(t, "x"))
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("err = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestClientSubmitUpstreamError(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.SubmitCode = http.StatusUnauthorized
	fake.SubmitBody = `{"error":{"errorCode":"200","message":"Authentication Failed"}}`
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	_, err := client.Submit(context.Background(), writeUpload(t, "x"))
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized || upstream.Op != "submit" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestClientSubmitMissingFile(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	req := models.TranslationRequest{FilePath: filepath.Join(t.TempDir(), "gone"), SourceLang: "ko", TargetLang: "en"}
	if _, err := client.Submit(context.Background(), req); err == nil {
		t.Fatal("expected error for missing upload file")
	}
	if fake.Count("translate") != 0 {
		t.Error("no request should reach the remote without a file")
	}
}

func TestClientPollStatus(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.Statuses = []string{"QUEUED", "PROGRESS", "", "complete", "FAILED"}
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	want := []StatusReport{
		{Status: models.JobStatusQueued, Raw: "QUEUED"},
		{Status: models.JobStatusUnknown, Raw: "PROGRESS"},
		{Status: models.JobStatusUnknown, Raw: ""},
		{Status: models.JobStatusUnknown, Raw: "complete"},
		{Status: models.JobStatusFailed, Raw: "FAILED"},
	}
	for i, w := range want {
		got, err := client.PollStatus(context.Background(), "42")
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if got != w {
			t.Errorf("poll %d = %+v, want %+v", i, got, w)
		}
	}

	for _, id := range fake.RequestIDs() {
		if id != "42" {
			t.Errorf("requestId query = %q, want 42", id)
		}
	}
}

func TestClientPollStatusTimeout(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.Delay["status"] = 2 * time.Second
	cfg := testConfig(fake.URL)
	cfg.StatusTimeout = 50 * time.Millisecond
	client := NewClient(cfg, zerolog.Nop())

	_, err := client.PollStatus(context.Background(), "42")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("err = %v, want ErrUpstreamTimeout", err)
	}
	if errors.Is(err, ErrCanceled) {
		t.Fatalf("per-call timeout must not look like a cancellation: %v", err)
	}
}

func TestClientCanceledByCaller(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.Delay["status"] = 2 * time.Second
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := client.PollStatus(ctx, "42")
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
}

func TestClientNetworkError(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	url := fake.URL
	fake.Close()
	client := NewClient(testConfig(url), zerolog.Nop())

	_, err := client.PollStatus(context.Background(), "42")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestClientFetchResultStreams(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.Result = []byte("%PDF-1.7 translated")
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	stream, err := client.FetchResult(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchResult: %v", err)
	}
	defer stream.Close()

	if stream.ContentLength != int64(len(fake.Result)) {
		t.Errorf("ContentLength = %d, want %d", stream.ContentLength, len(fake.Result))
	}
	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(got) != string(fake.Result) {
		t.Errorf("body = %q", got)
	}
}

func TestClientFetchResultError(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.DownloadCode = http.StatusNotFound
	client := NewClient(testConfig(fake.URL), zerolog.Nop())

	_, err := client.FetchResult(context.Background(), "42")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 UpstreamError", err)
	}
}

func TestClientFetchResultTimeout(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.Delay["download"] = 2 * time.Second
	cfg := testConfig(fake.URL)
	cfg.FetchTimeout = 50 * time.Millisecond
	client := NewClient(cfg, zerolog.Nop())

	_, err := client.FetchResult(context.Background(), "42")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("err = %v, want ErrUpstreamTimeout", err)
	}
}

func TestClientBreakerOpens(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.StatusCode = http.StatusBadGateway
	cfg := testConfig(fake.URL)
	cfg.BreakerFailures = 2
	client := NewClient(cfg, zerolog.Nop())

	for i := 0; i < 2; i++ {
		var upstream *UpstreamError
		if _, err := client.PollStatus(context.Background(), "42"); !errors.As(err, &upstream) {
			t.Fatalf("call %d: err = %v, want UpstreamError", i, err)
		}
	}
	if client.BreakerState() != "open" {
		t.Fatalf("breaker state = %s, want open", client.BreakerState())
	}

	_, err := client.PollStatus(context.Background(), "42")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if fake.Count("status") != 2 {
		t.Errorf("remote hit %d times, open breaker must not call out", fake.Count("status"))
	}
}

func TestClientBreakerIgnoresClientErrors(t *testing.T) {
	fake := testutil.NewFakePapago(t)
	fake.StatusCode = http.StatusBadRequest
	cfg := testConfig(fake.URL)
	cfg.BreakerFailures = 1
	client := NewClient(cfg, zerolog.Nop())

	for i := 0; i < 3; i++ {
		client.PollStatus(context.Background(), "42")
	}
	if client.BreakerState() != "closed" {
		t.Fatalf("breaker state = %s, want closed", client.BreakerState())
	}
}
