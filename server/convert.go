package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud"
	"github.com/twinfer/ontocloud/rdf"
	"github.com/twinfer/ontocloud/ttl"
)

type convertRequest struct {
	Data      jsontext.Value `json:"data" validate:"required"`
	BaseURI   string         `json:"base_uri" validate:"max=2048"`
	Namespace string         `json:"namespace" validate:"max=64"`
	Format    string         `json:"format" validate:"omitempty,oneof=turtle nquads jsonld datalog"`
}

type convertDatasetRequest struct {
	BaseURI   string `json:"base_uri" validate:"max=2048"`
	Namespace string `json:"namespace" validate:"max=64"`
	Format    string `json:"format" validate:"omitempty,oneof=turtle nquads jsonld datalog"`
	// Save stores the Turtle rendering linked to the dataset.
	Save      bool   `json:"save"`
	CreatedBy string `json:"created_by" validate:"max=255"`
}

type convertResponse struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	MIMEType string `json:"mime_type"`
	Subjects int    `json:"subjects"`
	Triples  int    `json:"triples"`
	TTLID    string `json:"ttl_id,omitempty"`
}

// conversion is a converted document rendered in one format.
type conversion struct {
	doc     *ttl.Document
	info    rdf.FormatInfo
	content string
}

func (c *conversion) response() convertResponse {
	return convertResponse{
		Content:  c.content,
		Format:   string(c.info.Name),
		MIMEType: c.info.MIMEType,
		Subjects: c.doc.SubjectCount(),
		Triples:  c.doc.TripleCount(),
	}
}

// convert runs the serializer over data and renders the result. Empty
// arguments fall back to the server defaults.
func (s *Server) convert(data []byte, baseURI, namespace, format string) (*conversion, error) {
	if baseURI == "" {
		baseURI = s.baseURI
	}
	if namespace == "" {
		namespace = s.namespace
	}
	f := rdf.Format(format)
	if f == "" {
		f = s.format
	}
	info, ok := rdf.GetFormatInfo(f)
	if !ok {
		return nil, newAPIError(http.StatusBadRequest, codeUnknownFormat, fmt.Errorf("%w: %q", rdf.ErrUnknownFormat, f))
	}

	doc, err := s.serializer.ConvertJSON(data, baseURI, namespace)
	if err != nil {
		s.metrics.conversions.WithLabelValues(string(info.Name), "error").Inc()
		return nil, conversionError(err)
	}
	content, err := rdf.Render(doc, info.Name)
	if err != nil {
		s.metrics.conversions.WithLabelValues(string(info.Name), "error").Inc()
		return nil, fmt.Errorf("failed to render %s: %w", info.Name, err)
	}

	s.metrics.conversions.WithLabelValues(string(info.Name), "ok").Inc()
	s.metrics.triples.Observe(float64(doc.TripleCount()))
	return &conversion{doc: doc, info: info, content: content}, nil
}

// conversionError maps serializer errors to 400 responses. Anything that is
// not one of the serializer's sentinels came from the JSON parser.
func conversionError(err error) error {
	code := codeInvalidJSON
	switch {
	case errors.Is(err, ttl.ErrInvalidInputKind):
		code = codeInvalidKind
	case errors.Is(err, ttl.ErrUnsupportedBaseURI):
		code = codeBaseURI
	case errors.Is(err, ttl.ErrInvalidNamespace):
		code = codeNamespace
	case errors.Is(err, ttl.ErrDepthLimitExceeded):
		code = codeDepthLimit
	case errors.Is(err, ttl.ErrSubjectCollision):
		code = codeSubjectConflict
	}
	return newAPIError(http.StatusBadRequest, code, err)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.convert(req.Data, req.BaseURI, req.Namespace, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c.response())
}

// handleConvertDownload returns the rendered document itself as an attachment.
func (s *Server) handleConvertDownload(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := s.decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.convert(req.Data, req.BaseURI, req.Namespace, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, c.info, c.content)
}

// handleConvertDataset converts a stored dataset's json_data, optionally
// saving the Turtle rendering linked to the dataset.
func (s *Server) handleConvertDataset(w http.ResponseWriter, r *http.Request) {
	var req convertDatasetRequest
	if err := s.decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	d, err := s.store.GetDataset(ctx, id)
	if err != nil {
		s.writeError(w, r, storeError(err))
		return
	}
	if len(d.Data) == 0 {
		s.writeError(w, r, newAPIError(http.StatusUnprocessableEntity, codeEmptyDataset,
			fmt.Errorf("dataset %s has no json_data", id)))
		return
	}

	c, err := s.convert(d.Data, req.BaseURI, req.Namespace, req.Format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := c.response()

	if req.Save {
		saved, err := s.store.SaveTTL(ctx, ontocloud.TTLFile{
			DatasetID: d.ID,
			Content:   c.doc.String(),
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			s.writeError(w, r, storeError(err))
			return
		}
		resp.TTLID = saved.ID
		s.logger.Info("saved converted dataset",
			zap.String("dataset_id", d.ID),
			zap.String("ttl_id", saved.ID),
			zap.Int("triples", resp.Triples))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func writeAttachment(w http.ResponseWriter, info rdf.FormatInfo, content string) {
	w.Header().Set("Content-Type", info.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ontology"+info.Extension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
