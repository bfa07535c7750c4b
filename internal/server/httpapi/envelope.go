package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/cartkeeper/internal/apperr"
	"github.com/dmitrijs2005/cartkeeper/internal/logging"
	"github.com/samber/oops"
)

// MsgUnexpected is the public message for errors that are not *apperr.Error.
const MsgUnexpected = "An unexpected error occurred"

type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Stack   string   `json:"stack,omitempty"`
}

// encodeFailure is sent when a payload cannot be marshalled.
var encodeFailure = []byte(`{"success":false,"message":"` + MsgUnexpected + `","errors":[]}` + "\n")

// writeJSON marshals v before touching the status line, so a payload that
// cannot be encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = encodeFailure
	} else {
		b = append(b, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, successEnvelope{
		StatusCode: status,
		Success:    true,
		Data:       data,
		Message:    message,
	})
}

// writeError is the single place where errors become HTTP responses.
// Server-kind and unknown errors are logged; stacks are exposed only outside
// production.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	env := errorEnvelope{Errors: []string{}}
	status := http.StatusInternalServerError

	if e, ok := apperr.As(err); ok {
		status = e.Status()
		env.Message = e.Message
		env.Errors = e.Details
		if !s.production {
			env.Stack = e.Stack()
		}
		if e.Kind == apperr.KindServer {
			logging.LogError(ctx, s.logger, "request failed", err, "status", status)
		}
	} else {
		env.Message = MsgUnexpected
		if !s.production {
			if oopsErr, ok := oops.AsOops(err); ok {
				env.Stack = oopsErr.Stacktrace()
			}
		}
		logging.LogError(ctx, s.logger, "unhandled error", err)
	}

	writeJSON(w, status, env)
}

// errBodyTooLarge marks a request body cut off by http.MaxBytesReader.
var errBodyTooLarge = errors.New("request body too large")

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	return decodeBody(w, r, limit, v, false)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	return decodeBody(w, r, limit, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Wrap(apperr.KindValidation, errBodyTooLarge, MsgInvalidBody, errBodyTooLarge.Error())
		}
		return apperr.Wrap(apperr.KindValidation, err, MsgInvalidBody)
	}
	return nil
}
