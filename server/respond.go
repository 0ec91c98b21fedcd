package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Error codes carried in the "error" member of error responses.
const (
	codeInvalidRequest  = "invalid_request"
	codeInvalidJSON     = "invalid_json"
	codeNotFound        = "not_found"
	codeInternal        = "internal_error"
	codeEmptyDataset    = "empty_dataset"
	codeInvalidDataset  = "invalid_dataset"
	codeUnavailable     = "fuseki_unavailable"
	codeTimeout         = "fuseki_timeout"
	codeUpstream        = "fuseki_error"
	codeTooLarge        = "request_too_large"
	codeUnknownFormat   = "unknown_format"
	codeInvalidKind     = "invalid_input_kind"
	codeBaseURI         = "unsupported_base_uri"
	codeNamespace       = "invalid_namespace"
	codeDepthLimit      = "depth_limit_exceeded"
	codeSubjectConflict = "subject_collision"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// apiError is an error with the HTTP status and code it is reported with.
type apiError struct {
	status int
	code   string
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

func newAPIError(status int, code string, err error) *apiError {
	return &apiError{status: status, code: code, err: err}
}

// jsonOptions keep raw dataset documents intact: duplicate member names are
// passed through rather than rejected.
var jsonOptions = jsontext.AllowDuplicateNames(true)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.MarshalWrite(&buf, v, jsonOptions); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, `{"error":"internal_error","message":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	buf.WriteByte('\n')
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeError reports err as a JSON error body. Errors that are not an
// *apiError become 500s and are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		apiErr = newAPIError(http.StatusInternalServerError, codeInternal, err)
	}
	s.writeJSON(w, apiErr.status, errorResponse{Error: apiErr.code, Message: apiErr.Error()})
}

// decodeBody reads a JSON request body into v and validates it. An empty body
// is accepted only when allowEmpty is set, in which case v is left untouched.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return newAPIError(http.StatusRequestEntityTooLarge, codeTooLarge,
				fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
		}
		return newAPIError(http.StatusBadRequest, codeInvalidRequest, fmt.Errorf("failed to read request body: %w", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if allowEmpty {
			return nil
		}
		return newAPIError(http.StatusBadRequest, codeInvalidRequest, errors.New("request body is required"))
	}
	if err := json.Unmarshal(body, v, jsonOptions); err != nil {
		return newAPIError(http.StatusBadRequest, codeInvalidJSON, fmt.Errorf("invalid request body: %w", err))
	}
	return s.validateStruct(v)
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		// Use JSON field name in error messages
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return validate
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newAPIError(http.StatusBadRequest, codeInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("key=%q failed %q validation", e.Field(), e.ActualTag()))
	}
	return newAPIError(http.StatusBadRequest, codeInvalidRequest, errors.New(strings.Join(msgs, "; ")))
}
