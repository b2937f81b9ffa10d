package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/generation"
	"github.com/linguaforge/linguaforge/internal/prompt"
	"github.com/linguaforge/linguaforge/internal/store"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

// fail maps a pipeline error to a status and writes it.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		cfgErr       *prompt.ConfigurationError
		notFound     *store.NotFoundError
		insufficient *assessment.InsufficientDataError
		upstream     *generation.UpstreamUnavailableError
		genFailed    *generation.GenerationFailedError
	)
	switch {
	case errors.As(err, &cfgErr):
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &notFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &insufficient):
		respondError(c, http.StatusUnprocessableEntity, "insufficient_data", err.Error())
	case errors.As(err, &upstream):
		respondError(c, http.StatusServiceUnavailable, "upstream_unavailable", "the content model is unavailable, try again later")
	case errors.As(err, &genFailed):
		respondError(c, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(c, http.StatusRequestTimeout, "timeout", "request timed out")
	default:
		respondError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
}
