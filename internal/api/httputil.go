package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/veo3-storyboard/internal/imagecodec"
	"github.com/fpang/veo3-storyboard/internal/jsonutil"
	"github.com/fpang/veo3-storyboard/internal/pipeline"
)

// statusClientClosed is the de facto status for a request abandoned by
// its client.
const statusClientClosed = 499

// errSessionNotFound answers requests for unknown or expired sessions.
var errSessionNotFound = errors.New("session not found or expired")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Cause string `json:"cause,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondError maps a pipeline error onto a status code and error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, cause := classify(err)
	body := errorResponse{Error: err.Error(), Cause: cause}

	var se *pipeline.StageError
	if errors.As(err, &se) {
		body.Stage = se.Kind()
	}

	evt := log.Warn()
	if status >= 500 {
		evt = log.Error()
	}
	evt.Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("cause", cause).
		Msg("Request failed")

	respondJSON(w, status, body)
}

// classify returns the HTTP status and a short machine-readable cause.
func classify(err error) (int, string) {
	var (
		upstream     *pipeline.UpstreamError
		precondition *pipeline.PreconditionError
		malformed    *jsonutil.MalformedResponseError
		decode       *imagecodec.DecodeError
		stage        *pipeline.StageError
	)

	switch {
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pipeline.ErrNoImage):
		return http.StatusBadRequest, "no_image"
	case errors.As(err, &precondition):
		return http.StatusConflict, "precondition"
	case errors.Is(err, context.Canceled):
		return statusClientClosed, "canceled"
	case errors.As(err, &upstream):
		switch {
		case errors.Is(err, pipeline.ErrNotConfigured):
			return http.StatusNotImplemented, "not_configured"
		case upstream.Timeout:
			return http.StatusGatewayTimeout, "upstream_timeout"
		default:
			return http.StatusBadGateway, "upstream_" + upstream.Kind.String()
		}
	case errors.As(err, &malformed):
		return http.StatusBadGateway, "malformed_response"
	case errors.As(err, &decode):
		// Undecodable bytes inside a stage came from a backend.
		if errors.As(err, &stage) {
			return http.StatusBadGateway, "undecodable_result"
		}
		return http.StatusBadRequest, "undecodable_image"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
