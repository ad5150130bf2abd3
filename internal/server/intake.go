package server

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yabtel/telemetria/internal/telemetry/domain"
)

// maxIntakeBody caps the decompressed batch size.
const maxIntakeBody = 256 << 20

// intakeBatch accepts a gzip-compressed JSON array of raw events pushed
// by an external collector.
func (s *Server) intakeBatch(c *gin.Context) {
	body := io.Reader(c.Request.Body)
	if isGzip(c) {
		gz, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: bad gzip body", ErrInvalidRequest))
			return
		}
		defer gz.Close()
		body = gz
	}

	var batch []domain.RawEventPayload
	if err := json.NewDecoder(io.LimitReader(body, maxIntakeBody)).Decode(&batch); err != nil {
		AbortWithError(c, fmt.Errorf("%w: bad json body", ErrInvalidRequest))
		return
	}

	result, err := s.telemetrySvc.IntakeBatch(c.Request.Context(), batch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func isGzip(c *gin.Context) bool {
	encoding := c.GetHeader("Content-Encoding")
	if encoding == "" {
		// The legacy collector sends gzip without declaring it.
		return c.GetHeader("Content-Type") != "application/json"
	}
	return strings.Contains(strings.ToLower(encoding), "gzip")
}

// maxRecordID reports the ingest watermark, 204 when nothing is stored.
func (s *Server) maxRecordID(c *gin.Context) {
	max, err := s.telemetrySvc.MaxRecordID(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyStore) {
			c.Status(http.StatusNoContent)
			return
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordId_max": max})
}
