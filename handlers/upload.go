package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingField means source or target was not supplied.
	ErrMissingField = errors.New("source/target required")
	// ErrMissingFile means the request carried no file part.
	ErrMissingFile = errors.New("file required")
	// ErrUploadTooLarge means the body exceeded the configured upload limit.
	ErrUploadTooLarge = errors.New("file too large")
)

var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// Upload is a received file persisted to the upload directory.
type Upload struct {
	Request models.TranslationRequest

	once sync.Once
}

// Remove deletes the temp file. Only the first call does anything; a failure
// is logged and swallowed.
func (u *Upload) Remove(logger *zerolog.Logger) {
	u.once.Do(func() {
		err := os.Remove(u.Request.FilePath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("path", u.Request.FilePath).Msg("failed to remove upload")
			return
		}
		logger.Debug().Str("path", u.Request.FilePath).Msg("upload removed")
	})
}

// receiveUpload validates the form and writes the file part to uploadDir
// under a unique name. No file is written when validation fails.
func receiveUpload(c *gin.Context, taskID, uploadDir string, maxBytes int64) (*Upload, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	if _, err := c.MultipartForm(); err != nil && tooLarge(err) {
		return nil, ErrUploadTooLarge
	}

	source := strings.TrimSpace(c.PostForm("source"))
	target := strings.TrimSpace(c.PostForm("target"))
	if source == "" || target == "" {
		return nil, ErrMissingField
	}

	file, err := c.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	path := filepath.Join(uploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return &Upload{Request: models.TranslationRequest{
		ID:           taskID,
		SourceLang:   source,
		TargetLang:   target,
		FilePath:     path,
		OriginalName: file.Filename,
	}}, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
