// Package respond renders the uniform response envelope. It is the only
// place application errors are translated to HTTP.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cloudylake/tenantapi/internal/apperror"
)

// Envelope is the uniform response body shape for every endpoint
type Envelope struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// Responder writes envelopes. Development mode includes internal error
// detail; production suppresses it.
type Responder struct {
	logger      *slog.Logger
	development bool
}

// New creates a responder
func New(logger *slog.Logger, development bool) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{logger: logger, development: development}
}

// JSON writes a success envelope with the given status code
func (r *Responder) JSON(w http.ResponseWriter, code int, env Envelope) {
	if env.Status == "" {
		env.Status = "success"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if code == http.StatusNoContent {
		return
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		r.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// Success writes a 200/201 envelope around data
func (r *Responder) Success(w http.ResponseWriter, code int, data interface{}) {
	r.JSON(w, code, Envelope{Status: "success", Data: data})
}

// List writes a success envelope with a results count
func (r *Responder) List(w http.ResponseWriter, count int, data interface{}) {
	r.JSON(w, http.StatusOK, Envelope{Status: "success", Results: &count, Data: data})
}

// NoContent writes an empty 204
func (r *Responder) NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error translates an application error to its HTTP status and a stable
// error body. 4xx render as "fail", 5xx as "error". Unclassified errors
// become internal; their detail is logged, and surfaced to the client
// only in development mode.
func (r *Responder) Error(w http.ResponseWriter, req *http.Request, err error) {
	appErr := apperror.From(err)
	status := appErr.Status()

	message := appErr.Message
	if appErr.Kind == apperror.KindInternal {
		r.logger.Error("unhandled error",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", appErr.Error()),
		)
		if r.development && appErr.Err != nil {
			message = appErr.Err.Error()
		}
	}

	statusWord := "error"
	if status < http.StatusInternalServerError {
		statusWord = "fail"
	}

	r.JSON(w, status, Envelope{Status: statusWord, Message: message})
}
