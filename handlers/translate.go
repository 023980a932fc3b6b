package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crowdflux/DeckLingo-AI/middleware"
	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/crowdflux/DeckLingo-AI/translator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Translator runs a translation job end to end.
type Translator interface {
	Translate(ctx context.Context, req models.TranslationRequest, progress func(models.RemoteJob)) (*translator.Result, error)
}

// BreakerStater reports the upstream circuit breaker state.
type BreakerStater interface {
	BreakerState() string
}

// Options configures a Handler.
type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	// Breaker is optional and only feeds the health endpoint.
	Breaker BreakerStater
}

// Handler serves the translate API.
type Handler struct {
	translator Translator
	tasks      *TaskManager
	opts       Options
}

// NewHandler creates a handler backed by t.
func NewHandler(t Translator, opts Options) *Handler {
	return &Handler{
		translator: t,
		tasks:      NewTaskManager(),
		opts:       opts,
	}
}

// Translate handles POST /api/translate: upload, remote job, streamed result.
func (h *Handler) Translate(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	// Tasks are keyed by a server-issued id; the inbound request id is only a log field.
	sessionID := middleware.GetSessionID(c)
	taskID := uuid.New().String()

	upload, err := receiveUpload(c, taskID, h.opts.UploadDir, h.opts.MaxUploadBytes)
	if err != nil {
		status := uploadStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("failed to store upload")
			c.JSON(status, gin.H{"error": "failed to save upload"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	defer upload.Remove(logger)

	req := upload.Request
	h.tasks.AddTask(sessionID, &models.TranslateTask{
		ID:             req.ID,
		SourceFile:     req.OriginalName,
		SourceLanguage: req.SourceLang,
		TargetLanguage: req.TargetLang,
		Stage:          models.TaskStageSubmitting,
		CreatedAt:      time.Now(),
	})
	defer h.tasks.RemoveTask(sessionID, req.ID)

	logger.Info().
		Str("task_id", req.ID).
		Str("file", req.OriginalName).
		Str("source", req.SourceLang).
		Str("target", req.TargetLang).
		Msg("translation requested")

	result, err := h.translator.Translate(ctx, req, func(job models.RemoteJob) {
		h.tasks.UpdateTask(sessionID, req.ID, func(t *models.TranslateTask) {
			t.Stage = models.TaskStagePolling
			t.Remote = &job
		})
	})
	if err != nil {
		stage := models.TaskStageSubmitting
		if task, ok := h.tasks.GetTask(sessionID, req.ID); ok {
			stage = task.Stage
		}
		if errors.Is(err, translator.ErrCanceled) || ctx.Err() != nil {
			// Nobody is listening any more.
			logger.Warn().Err(err).Str("task_id", req.ID).Str("stage", string(stage)).Msg("translation abandoned by client")
			c.Abort()
			return
		}
		logger.Error().Err(err).Str("task_id", req.ID).Str("stage", string(stage)).Msg("translation failed")

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer result.Stream.Close()

	h.tasks.UpdateTask(sessionID, req.ID, func(t *models.TranslateTask) {
		t.Stage = models.TaskStageStreaming
	})
	relay(c, result, logger)
}

// Health reports liveness and the upstream breaker state.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "inFlight": h.tasks.Count()}
	if h.opts.Breaker != nil {
		body["upstream"] = h.opts.Breaker.BreakerState()
	}
	c.JSON(http.StatusOK, body)
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
