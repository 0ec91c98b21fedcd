package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/twinfer/ontocloud/fuseki"
)

type fusekiUploadRequest struct {
	Content string `json:"ttl_content" validate:"required"`
	Dataset string `json:"dataset" validate:"max=128"`
}

type fusekiUploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type fusekiStatusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleFusekiUpload(w http.ResponseWriter, r *http.Request) {
	var req fusekiUploadRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	dataset := req.Dataset
	if dataset == "" {
		dataset = s.fusekiDataset
	}

	if err := s.uploader.Upload(r.Context(), dataset, req.Content); err != nil {
		s.metrics.uploads.WithLabelValues("error").Inc()
		s.logger.Warn("fuseki upload failed", zap.String("dataset", dataset), zap.Error(err))
		s.writeError(w, r, uploadError(err))
		return
	}

	s.metrics.uploads.WithLabelValues("ok").Inc()
	s.writeJSON(w, http.StatusOK, fusekiUploadResponse{
		Status:  "success",
		Message: "TTL data successfully loaded into Fuseki.",
	})
}

// uploadError maps client failures to responses. Fuseki's own error status is
// passed through.
func uploadError(err error) error {
	var statusErr *fuseki.StatusError
	switch {
	case errors.Is(err, fuseki.ErrInvalidDataset):
		return newAPIError(http.StatusBadRequest, codeInvalidDataset, err)
	case errors.Is(err, fuseki.ErrUnavailable):
		return newAPIError(http.StatusServiceUnavailable, codeUnavailable, err)
	case errors.Is(err, fuseki.ErrTimeout):
		return newAPIError(http.StatusGatewayTimeout, codeTimeout, err)
	case errors.As(err, &statusErr):
		code := statusErr.Code
		if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		return newAPIError(code, codeUpstream, err)
	}
	return fmt.Errorf("network error: %w", err)
}

func (s *Server) handleFusekiStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, fusekiStatusResponse{Status: s.uploader.Status(r.Context())})
}
