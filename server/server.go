// Package server exposes the QIDO-RS search routes over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caio-sobreiro/dicomweb/errors"
	"github.com/caio-sobreiro/dicomweb/interfaces"
	"github.com/caio-sobreiro/dicomweb/logger"
	"github.com/caio-sobreiro/dicomweb/query"
	"github.com/caio-sobreiro/dicomweb/types"
)

const (
	// MediaTypeDICOMJSON is the content type of search responses.
	MediaTypeDICOMJSON = "application/dicom+json"
	// HeaderRequestID carries the identifier assigned to every request.
	HeaderRequestID = "X-Request-Id"

	shutdownTimeout = 10 * time.Second
)

// Option configures a Server instance.
type Option func(*Server)

// WithLogger overrides the logger used by the server.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithReadTimeout sets the read timeout for client connections.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the write timeout for client connections.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.WriteTimeout = timeout
	}
}

// Server serves QIDO-RS searches through a QueryHandler.
type Server struct {
	Handler      interfaces.QueryHandler
	Logger       *zap.Logger
	ReadTimeout  time.Duration // zero means no timeout
	WriteTimeout time.Duration // zero means no timeout
}

// New builds a Server with the provided handler.
func New(handler interfaces.QueryHandler, opts ...Option) *Server {
	srv := &Server{Handler: handler}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ListenAndServe listens on the given address and serves until the context is done or an error occurs.
func ListenAndServe(ctx context.Context, address string, handler interfaces.QueryHandler, opts ...Option) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", address)
	}
	defer listener.Close()

	srv := New(handler, opts...)
	return srv.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is cancelled, then shuts
// down gracefully. It returns ctx.Err() after a clean shutdown.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("qido: listener is required")
	}
	if s == nil {
		return errors.New("qido: server is nil")
	}
	if s.Handler == nil {
		return errors.New("qido: handler is required")
	}

	log := s.logger()
	httpServer := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		ErrorLog:     zap.NewStdLog(log),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	log.Info("QIDO-RS server listening", zap.String("address", listener.Addr().String()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Graceful shutdown failed", zap.Error(err))
		return err
	}
	log.Info("QIDO-RS server stopped")
	return ctx.Err()
}

// Routes returns the handler serving every search route.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /studies", s.search(types.AllStudies))
	mux.HandleFunc("GET /series", s.search(types.AllSeries))
	mux.HandleFunc("GET /instances", s.search(types.AllInstances))
	mux.HandleFunc("GET /studies/{study}/series", s.search(types.StudySeries))
	mux.HandleFunc("GET /studies/{study}/instances", s.search(types.StudyInstances))
	mux.HandleFunc("GET /studies/{study}/series/{series}/instances", s.search(types.StudySeriesInstances))
	return mux
}

func (s *Server) search(resource types.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set(HeaderRequestID, requestID)

		log := s.logger().With(
			zap.String(logger.FieldRequestID, requestID),
			zap.String(logger.FieldMethod, r.Method),
			zap.String(logger.FieldPath, r.URL.Path),
			zap.String(logger.FieldQuery, r.URL.RawQuery))

		status, matches := s.serveSearch(w, r, resource, log)

		log.Info("Search served",
			zap.Int(logger.FieldStatus, status),
			zap.Int(logger.FieldMatches, matches),
			zap.Int64(logger.FieldDurationMS, time.Since(start).Milliseconds()))
	}
}

func (s *Server) serveSearch(w http.ResponseWriter, r *http.Request, resource types.ResourceType, log *zap.Logger) (int, int) {
	params, err := query.ParseRawQuery(r.URL.RawQuery)
	if err != nil {
		err = errors.NewQueryParseError(errors.KindInvalidParameter, "", errors.MsgMalformedQueryString, err)
		return s.writeError(w, err, log), 0
	}

	req := interfaces.QueryRequest{
		Resource:          resource,
		Parameters:        params,
		StudyInstanceUID:  r.PathValue("study"),
		SeriesInstanceUID: r.PathValue("series"),
	}

	result, err := s.Handler.Query(r.Context(), req)
	if err != nil {
		return s.writeError(w, err, log), 0
	}

	host := warningAgent(r)
	for _, tag := range result.ErroneousTags {
		w.Header().Add("Warning", fmt.Sprintf("299 %s %q", host, fmt.Sprintf(errors.MsgErroneousAttribute, tag)))
	}

	if len(result.Datasets) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent, 0
	}

	body, err := json.Marshal(result.Datasets)
	if err != nil {
		return s.writeError(w, errors.Wrap(err, "encode response"), log), 0
	}
	w.Header().Set("Content-Type", MediaTypeDICOMJSON)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warn("Failed to write response", zap.Error(err))
	}
	return http.StatusOK, len(result.Datasets)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error, log *zap.Logger) int {
	status := http.StatusInternalServerError
	message := http.StatusText(status)
	switch {
	case errors.IsBadRequest(err):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		status = 499
		message = "request cancelled"
	default:
		log.Error("Search failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
	return status
}

// warningAgent returns the warn-agent of a Warning header: the host the
// request was addressed to, without port.
func warningAgent(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if strings.TrimSpace(host) == "" {
		return "-"
	}
	return host
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
