// Package testutil holds test doubles shared by package tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Submission records what the fake saw on POST /translate.
type Submission struct {
	Source   string
	Target   string
	Filename string
	Content  []byte
	KeyID    string
	Key      string
}

// FakePapago is an httptest server speaking the remote job API:
// POST /translate, GET /status, GET /download.
// Configure the exported fields before issuing requests.
type FakePapago struct {
	*httptest.Server

	// SubmitBody is returned by /translate with SubmitCode.
	SubmitBody string
	SubmitCode int
	// Statuses are returned by successive /status calls; the last one repeats.
	Statuses   []string
	StatusCode int
	// Result is streamed by /download with DownloadCode. A DeclaredLength
	// above the bytes sent makes the download end early.
	Result         []byte
	DownloadCode   int
	DeclaredLength int
	// When Hold is set, /download flushes Result, waits for Hold to be
	// closed and then sends Tail.
	Hold chan struct{}
	Tail []byte
	// Delay holds a per-endpoint latency ("translate", "status", "download").
	Delay map[string]time.Duration

	mu          sync.Mutex
	calls       []string
	requestIDs  []string
	submissions []Submission
}

// NewFakePapago starts a fake that accepts a job with id 42, reports it
// COMPLETE on the first poll and returns "translated" on download.
func NewFakePapago(t *testing.T) *FakePapago {
	t.Helper()

	f := &FakePapago{
		SubmitBody:   `{"data":{"requestId":"42"}}`,
		SubmitCode:   http.StatusOK,
		Statuses:     []string{"COMPLETE"},
		StatusCode:   http.StatusOK,
		Result:       []byte("translated"),
		DownloadCode: http.StatusOK,
		Delay:        map[string]time.Duration{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/translate", f.handleTranslate)
	mux.HandleFunc("/status", f.handleStatus)
	mux.HandleFunc("/download", f.handleDownload)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

// Calls returns the endpoints hit so far, in order.
func (f *FakePapago) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how often endpoint was hit.
func (f *FakePapago) Count(endpoint string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == endpoint {
			n++
		}
	}
	return n
}

// RequestIDs returns the requestId query values seen by /status and /download.
func (f *FakePapago) RequestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...)
}

// Submissions returns every upload received by /translate.
func (f *FakePapago) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Submission(nil), f.submissions...)
}

func (f *FakePapago) record(r *http.Request, endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpoint)
	if id := r.URL.Query().Get("requestId"); id != "" {
		f.requestIDs = append(f.requestIDs, id)
	}
	n := 0
	for _, c := range f.calls {
		if c == endpoint {
			n++
		}
	}
	return n
}

// wait sleeps for the endpoint delay; false means the client went away.
func (f *FakePapago) wait(r *http.Request, endpoint string) bool {
	f.mu.Lock()
	d := f.Delay[endpoint]
	f.mu.Unlock()
	if d <= 0 {
		return true
	}
	select {
	case <-r.Context().Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (f *FakePapago) handleTranslate(w http.ResponseWriter, r *http.Request) {
	f.record(r, "translate")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !f.wait(r, "translate") {
		return
	}

	sub := Submission{
		KeyID: r.Header.Get("X-NCP-APIGW-API-KEY-ID"),
		Key:   r.Header.Get("X-NCP-APIGW-API-KEY"),
	}
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		sub.Source = r.FormValue("source")
		sub.Target = r.FormValue("target")
		if file, header, err := r.FormFile("file"); err == nil {
			sub.Filename = header.Filename
			sub.Content, _ = io.ReadAll(file)
			file.Close()
		}
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.SubmitCode)
	io.WriteString(w, f.SubmitBody)
}

func (f *FakePapago) handleStatus(w http.ResponseWriter, r *http.Request) {
	n := f.record(r, "status")
	if !f.wait(r, "status") {
		return
	}

	status := ""
	if len(f.Statuses) > 0 {
		i := n - 1
		if i >= len(f.Statuses) {
			i = len(f.Statuses) - 1
		}
		status = f.Statuses[i]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.StatusCode)
	if status == "" {
		io.WriteString(w, `{"data":{}}`)
		return
	}
	io.WriteString(w, `{"data":{"requestId":"`+r.URL.Query().Get("requestId")+`","status":"`+status+`"}}`)
}

func (f *FakePapago) handleDownload(w http.ResponseWriter, r *http.Request) {
	f.record(r, "download")
	if !f.wait(r, "download") {
		return
	}

	if f.DownloadCode != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.DownloadCode)
		io.WriteString(w, `{"error":"download failed"}`)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	length := len(f.Result) + len(f.Tail)
	if f.DeclaredLength > length {
		length = f.DeclaredLength
	}
	w.Header().Set("Content-Length", strconv.Itoa(length))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Result)

	if f.Hold != nil {
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		select {
		case <-f.Hold:
		case <-r.Context().Done():
			return
		}
	}
	w.Write(f.Tail)
}
