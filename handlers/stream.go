package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/crowdflux/DeckLingo-AI/translator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const relayBufferSize = 32 << 10

// relay writes the result headers and copies the remote body to the client
// one buffer at a time. Each chunk is flushed before the next read.
func relay(c *gin.Context, res *translator.Result, logger *zerolog.Logger) {
	h := c.Writer.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Disposition", translator.ContentDisposition(res.Filename))
	if res.Stream.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(res.Stream.ContentLength, 10))
	}
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	n, err := io.CopyBuffer(flushWriter{c.Writer}, res.Stream, make([]byte, relayBufferSize))
	if err != nil {
		logger.Error().Err(err).
			Int64("bytes", n).
			Str("remote_request_id", res.Job.RequestID).
			Msg("relay interrupted, dropping connection")
		// Status is already sent; abort so the client sees a failed transfer.
		panic(http.ErrAbortHandler)
	}

	logger.Info().
		Int64("bytes", n).
		Str("remote_request_id", res.Job.RequestID).
		Str("filename", res.Filename).
		Msg("translation delivered")
}

// flushWriter pushes every write to the client immediately.
type flushWriter struct {
	w gin.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	f.w.Flush()
	return n, nil
}
