package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yabtel/telemetria/internal/merge/domain"
)

func (s *Server) runMerge(mergeType domain.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.mergeSvc.Run(c.Request.Context(), mergeType)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) listMerged(mergeType domain.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := s.mergeSvc.List(c.Request.Context(), mergeType)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
