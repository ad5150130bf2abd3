package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// fetchTelemetry triggers one synchronous fetch-and-store run against the
// upstream provider.
func (s *Server) fetchTelemetry(c *gin.Context) {
	result, err := s.telemetrySvc.FetchAndStore(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
