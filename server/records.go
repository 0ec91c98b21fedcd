package server

import (
	"errors"
	"net/http"

	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud"
	"github.com/twinfer/ontocloud/rdf"
)

type createDatasetRequest struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=4096"`
	Data        jsontext.Value `json:"json_data"`
	FileSize    int64          `json:"file_size" validate:"gte=0"`
	UploadedBy  string         `json:"uploaded_by" validate:"max=255"`
}

type saveTTLRequest struct {
	DatasetID string `json:"dataset_id" validate:"max=64"`
	Content   string `json:"ttl_content" validate:"required"`
	CreatedBy string `json:"created_by" validate:"max=255"`
}

type idResponse struct {
	ID string `json:"id"`
}

// storeError maps store sentinels to client errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, ontocloud.ErrNotFound):
		return newAPIError(http.StatusNotFound, codeNotFound, err)
	case errors.Is(err, ontocloud.ErrMissingName),
		errors.Is(err, ontocloud.ErrMissingContent):
		return newAPIError(http.StatusBadRequest, codeInvalidRequest, err)
	case errors.Is(err, ontocloud.ErrInvalidJSON):
		return newAPIError(http.StatusBadRequest, codeInvalidJSON, err)
	}
	return err
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.ListDatasets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.store.CreateDataset(r.Context(), ontocloud.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Data:        req.Data,
		FileSize:    req.FileSize,
		UploadedBy:  req.UploadedBy,
	})
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	s.logger.Info("created dataset",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.Int64("file_size", d.FileSize))
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDataset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDataset(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveTTL(w http.ResponseWriter, r *http.Request) {
	var req saveTTLRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	f, err := s.store.SaveTTL(r.Context(), ontocloud.TTLFile{
		DatasetID: req.DatasetID,
		Content:   req.Content,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, idResponse{ID: f.ID})
}

func (s *Server) handleListTTL(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListTTL(r.Context(), r.URL.Query().Get("dataset_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetTTL(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetTTL(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDownloadTTL(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetTTL(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	writeAttachment(w, rdf.FormatRegistry[rdf.FormatTurtle], f.Content)
}
