package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/crowdflux/DeckLingo-AI/config"
	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Credential headers required by the NCP API gateway on every call.
const (
	HeaderKeyID = "X-NCP-APIGW-API-KEY-ID"
	HeaderKey   = "X-NCP-APIGW-API-KEY"
)

const errorBodyLimit = 512

// StatusReport is one answer from the status endpoint.
type StatusReport struct {
	Status models.JobStatus
	Raw    string
}

// ResultStream is the live download body. ContentLength is -1 when unknown.
type ResultStream struct {
	io.ReadCloser
	ContentLength int64
}

// Client talks to the remote document translation API.
type Client struct {
	http    *resty.Client
	breaker *breaker

	submitTimeout time.Duration
	statusTimeout time.Duration
	fetchTimeout  time.Duration
}

// NewClient creates a client bound to cfg's base URL and credentials.
func NewClient(cfg config.Config, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "papago").Logger()

	h := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader(HeaderKeyID, cfg.KeyID).
		SetHeader(HeaderKey, cfg.Key).
		SetLogger(restyLogger{logger})

	return &Client{
		http:          h,
		breaker:       newBreaker("papago", cfg.BreakerFailures, cfg.BreakerCooldown, logger),
		submitTimeout: cfg.SubmitTimeout,
		statusTimeout: cfg.StatusTimeout,
		fetchTimeout:  cfg.FetchTimeout,
	}
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.state()
}

type envelope struct {
	Data struct {
		RequestID json.RawMessage `json:"requestId"`
		Status    *string         `json:"status"`
	} `json:"data"`
}

// Submit uploads the document and returns the remote request id.
func (c *Client) Submit(ctx context.Context, req models.TranslationRequest) (string, error) {
	const op = "submit"

	f, err := os.Open(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("%s: open upload: %w", op, err)
	}
	defer f.Close()

	callCtx, cancel := context.WithTimeoutCause(ctx, c.submitTimeout, ErrUpstreamTimeout)
	defer cancel()

	v, err := c.breaker.do(func() (interface{}, error) {
		r, err := c.http.R().
			SetContext(callCtx).
			SetMultipartFormData(map[string]string{
				"source": req.SourceLang,
				"target": req.TargetLang,
			}).
			SetFileReader("file", req.OriginalName, f).
			Post("/translate")
		if err != nil {
			return nil, transportError(ctx, callCtx, op, err)
		}
		if r.IsError() {
			return nil, &UpstreamError{Op: op, StatusCode: r.StatusCode(), Body: abbreviate(r.String(), errorBodyLimit)}
		}

		var env envelope
		if err := json.Unmarshal(r.Body(), &env); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidResponse, err)
		}
		id := requestIDFrom(env.Data.RequestID)
		if id == "" {
			return nil, fmt.Errorf("%s: %w: missing data.requestId", op, ErrInvalidResponse)
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PollStatus asks for the current status of a submitted job.
func (c *Client) PollStatus(ctx context.Context, requestID string) (StatusReport, error) {
	const op = "status"

	callCtx, cancel := context.WithTimeoutCause(ctx, c.statusTimeout, ErrUpstreamTimeout)
	defer cancel()

	v, err := c.breaker.do(func() (interface{}, error) {
		r, err := c.http.R().
			SetContext(callCtx).
			SetQueryParam("requestId", requestID).
			Get("/status")
		if err != nil {
			return nil, transportError(ctx, callCtx, op, err)
		}
		if r.IsError() {
			return nil, &UpstreamError{Op: op, StatusCode: r.StatusCode(), Body: abbreviate(r.String(), errorBodyLimit)}
		}

		var env envelope
		if err := json.Unmarshal(r.Body(), &env); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidResponse, err)
		}
		raw := ""
		if env.Data.Status != nil {
			raw = *env.Data.Status
		}
		return StatusReport{Status: models.ParseJobStatus(raw), Raw: raw}, nil
	})
	if err != nil {
		return StatusReport{}, err
	}
	return v.(StatusReport), nil
}

// FetchResult opens the translated document as a stream. The fetch timeout
// covers the wait for response headers; reading the body is bounded by ctx.
// The caller must Close the stream.
func (c *Client) FetchResult(ctx context.Context, requestID string) (*ResultStream, error) {
	const op = "download"

	callCtx, cancel := context.WithCancelCause(ctx)
	timer := time.AfterFunc(c.fetchTimeout, func() { cancel(ErrUpstreamTimeout) })

	v, err := c.breaker.do(func() (interface{}, error) {
		r, err := c.http.R().
			SetContext(callCtx).
			SetDoNotParseResponse(true).
			SetQueryParam("requestId", requestID).
			Get("/download")
		if err != nil {
			if r != nil && r.RawBody() != nil {
				r.RawBody().Close()
			}
			return nil, transportError(ctx, callCtx, op, err)
		}
		if r.IsError() {
			body := r.RawBody()
			snippet, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))
			body.Close()
			return nil, &UpstreamError{Op: op, StatusCode: r.StatusCode(), Body: strings.TrimSpace(string(snippet))}
		}
		return r, nil
	})
	if err != nil {
		timer.Stop()
		cancel(nil)
		return nil, err
	}

	r := v.(*resty.Response)
	if !timer.Stop() {
		// The timeout fired between headers and here; the body is already dead.
		r.RawBody().Close()
		cancel(nil)
		return nil, fmt.Errorf("%s: %w", op, ErrUpstreamTimeout)
	}

	length := int64(-1)
	if r.RawResponse != nil {
		length = r.RawResponse.ContentLength
	}
	return &ResultStream{
		ReadCloser:    &cancelOnClose{ReadCloser: r.RawBody(), cancel: func() { cancel(nil) }},
		ContentLength: length,
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel func()
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// transportError classifies a failed round trip. parent is the caller's
// context, call is the per-call context derived from it.
func transportError(parent, call context.Context, op string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrCanceled, context.Cause(parent))
	}
	if errors.Is(context.Cause(call), ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrUpstreamTimeout)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", op, ErrUpstreamTimeout)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// requestIDFrom accepts the id as a JSON string or number.
func requestIDFrom(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// restyLogger routes resty's internal messages into zerolog at debug level;
// failures are reported by the callers.
type restyLogger struct {
	l zerolog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug().Msgf(strings.TrimSpace(format), v...)
}
