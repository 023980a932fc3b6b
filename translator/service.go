package translator

import (
	"context"
	"path"
	"time"

	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/rs/zerolog"
)

// JobAPI is the remote job-based translation API.
type JobAPI interface {
	StatusChecker
	Submit(ctx context.Context, req models.TranslationRequest) (string, error)
	FetchResult(ctx context.Context, requestID string) (*ResultStream, error)
}

// Result is a finished job whose translated document is ready to relay.
// The caller owns Stream and must close it.
type Result struct {
	Job         models.RemoteJob
	Stream      *ResultStream
	Filename    string
	ContentType string
}

// Service runs one translation end to end: submit, poll, fetch.
type Service struct {
	api    JobAPI
	poller *Poller
	now    func() time.Time
}

// NewService creates a service polling every interval until deadline.
func NewService(api JobAPI, interval, deadline time.Duration) *Service {
	return &Service{
		api:    api,
		poller: NewPoller(api, interval, deadline),
		now:    time.Now,
	}
}

// Translate submits req once, waits for the job and opens its result.
// progress, if set, receives job snapshots from submit until the job is
// terminal. Nothing is fetched unless the job completed.
func (s *Service) Translate(ctx context.Context, req models.TranslationRequest, progress func(models.RemoteJob)) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	requestID, err := s.api.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	job := models.NewRemoteJob(requestID, s.now())
	notify(progress, job)
	logger.Info().
		Str("remote_request_id", requestID).
		Str("source", req.SourceLang).
		Str("target", req.TargetLang).
		Msg("translation job submitted")

	if err := s.poller.Wait(ctx, job, progress); err != nil {
		return nil, err
	}

	stream, err := s.api.FetchResult(ctx, requestID)
	if err != nil {
		return nil, err
	}

	filename := OutputFilename(req.OriginalName, req.TargetLang)
	return &Result{
		Job:         *job,
		Stream:      stream,
		Filename:    filename,
		ContentType: ContentTypeFor(path.Ext(filename)),
	}, nil
}
