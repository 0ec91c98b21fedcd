// Package server exposes the converter, the dataset store and the Fuseki
// loader over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud"
	"github.com/twinfer/ontocloud/rdf"
	"github.com/twinfer/ontocloud/ttl"
)

const (
	DefaultBaseURI      = "http://example.org/ontology#"
	DefaultNamespace    = "ex"
	DefaultMaxBodyBytes = 32 << 20
)

// Store is the persistence the API needs. *ontocloud.Store implements it.
type Store interface {
	CreateDataset(ctx context.Context, d ontocloud.Dataset) (*ontocloud.Dataset, error)
	GetDataset(ctx context.Context, id string) (*ontocloud.Dataset, error)
	ListDatasets(ctx context.Context) ([]ontocloud.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
	SaveTTL(ctx context.Context, f ontocloud.TTLFile) (*ontocloud.TTLFile, error)
	GetTTL(ctx context.Context, id string) (*ontocloud.TTLFile, error)
	ListTTL(ctx context.Context, datasetID string) ([]ontocloud.TTLFile, error)
}

// Uploader loads Turtle into a triple store. *fuseki.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, dataset, ttl string) error
	Status(ctx context.Context) string
}

// Server routes API requests. It implements http.Handler.
type Server struct {
	store      Store
	uploader   Uploader
	serializer *ttl.Serializer
	logger     *zap.Logger
	validate   *validator.Validate
	registry   *prometheus.Registry
	metrics    *metrics
	mux        *http.ServeMux

	baseURI       string
	namespace     string
	format        rdf.Format
	fusekiDataset string
	maxBodyBytes  int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and error logs.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSerializer sets the serializer used for every conversion.
func WithSerializer(serializer *ttl.Serializer) Option {
	return func(s *Server) { s.serializer = serializer }
}

// WithDefaults sets the base URI, namespace and output format used when a
// request leaves them empty.
func WithDefaults(baseURI, namespace string, format rdf.Format) Option {
	return func(s *Server) {
		s.baseURI = baseURI
		s.namespace = namespace
		s.format = format
	}
}

// WithFusekiDataset sets the dataset uploads go to when a request names none.
func WithFusekiDataset(dataset string) Option {
	return func(s *Server) { s.fusekiDataset = dataset }
}

// WithMaxBodyBytes caps the size of request bodies. Values below 1 keep the
// default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New returns a Server backed by store and uploader.
func New(store Store, uploader Uploader, opts ...Option) *Server {
	s := &Server{
		store:         store,
		uploader:      uploader,
		serializer:    ttl.New(),
		logger:        zap.NewNop(),
		validate:      newValidator(),
		registry:      prometheus.NewRegistry(),
		baseURI:       DefaultBaseURI,
		namespace:     DefaultNamespace,
		format:        rdf.FormatTurtle,
		fusekiDataset: "fc",
		maxBodyBytes:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = newMetrics(s.registry)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux = http.NewServeMux()

	s.handle("GET /health", s.handleHealth)
	s.handle("GET /api/formats", s.handleFormats)

	s.handle("POST /api/convert", s.handleConvert)
	s.handle("POST /api/convert/download", s.handleConvertDownload)

	s.handle("GET /api/datasets", s.handleListDatasets)
	s.handle("POST /api/datasets", s.handleCreateDataset)
	s.handle("GET /api/datasets/{id}", s.handleGetDataset)
	s.handle("DELETE /api/datasets/{id}", s.handleDeleteDataset)
	s.handle("POST /api/datasets/{id}/convert", s.handleConvertDataset)

	s.handle("GET /api/ttl", s.handleListTTL)
	s.handle("POST /api/ttl", s.handleSaveTTL)
	s.handle("GET /api/ttl/{id}", s.handleGetTTL)
	s.handle("GET /api/ttl/{id}/download", s.handleDownloadTTL)

	s.handle("POST /api/fuseki/upload", s.handleFusekiUpload)
	s.handle("GET /api/fuseki/status", s.handleFusekiStatus)

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// handle registers h under pattern with request metrics and logging.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Debug("request",
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Registry returns the registry /metrics is served from.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type formatResponse struct {
	Name        string `json:"name"`
	MIMEType    string `json:"mime_type"`
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	formats := rdf.Formats()
	out := make([]formatResponse, 0, len(formats))
	for _, f := range formats {
		info := rdf.FormatRegistry[f]
		out = append(out, formatResponse{
			Name:        string(info.Name),
			MIMEType:    info.MIMEType,
			Extension:   info.Extension,
			Description: info.Description,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}
