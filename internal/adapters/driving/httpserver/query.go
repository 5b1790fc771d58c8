package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/answergrid/answergrid/internal/core/domain"
)

// queryRequest is the body of POST /api/v1/query.
type queryRequest struct {
	// Tenant is a canonical tenant id or a registered alias.
	Tenant string `json:"tenant"`

	// Query is the natural-language question.
	Query string `json:"query"`
}

// queryResponse wraps the answer for the wire.
type queryResponse struct {
	Answer     string             `json:"answer"`
	Sources    []domain.SourceRef `json:"sources"`
	TokenCount int                `json:"token_count"`
	Grounded   bool               `json:"grounded"`
}

// handleQuery answers one tenant question.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewFault(domain.FaultInvalidInput, "decoding query request", err))
		return
	}

	if strings.TrimSpace(req.Tenant) == "" || strings.TrimSpace(req.Query) == "" {
		writeError(c, domain.NewFault(domain.FaultInvalidInput,
			"tenant and query are required", domain.ErrInvalidInput))
		return
	}

	answer, err := s.answerer.Answer(c.Request.Context(), req.Tenant, req.Query)
	if err != nil {
		writeError(c, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	c.JSON(http.StatusOK, queryResponse{
		Answer:     answer.Text,
		Sources:    sources,
		TokenCount: answer.TokenCount,
		Grounded:   answer.Grounded,
	})
}

// handleHealth reports liveness and configuration posture. It never
// echoes secret material, only whether it is configured.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"webhook_signing": s.webhookSecret != "",
		"demo_mode":       s.demoMode,
	})
}
