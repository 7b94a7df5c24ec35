// Package server exposes the assistant over HTTP and serves the single-page UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/service"
	"github.com/spigell/smart-resume/internal/store"
)

const (
	DefaultPort            = 8000
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxUploadBytes  = 20 << 20
	historyLimit           = 50
)

// Assistant is the use-case layer the handlers call into.
type Assistant interface {
	ReplaceResume(ctx context.Context, text string) (*service.Stats, error)
	ReplaceJobDescription(ctx context.Context, text string) (*service.Stats, error)
	Analyze(ctx context.Context) (*store.AnalysisLog, error)
	History(ctx context.Context, limit int) ([]*store.AnalysisLog, error)
	ClearHistory(ctx context.Context) (int64, error)
	Chat(ctx context.Context, message string) (string, error)
}

var _ Assistant = (*service.Service)(nil)

// Config holds the HTTP listener settings.
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors-origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes"`
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	return c
}

// Addr is the listen address built from Host and Port.
func (c Config) Addr() string {
	c = c.withDefaults()
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Server struct {
	assistant Assistant
	cfg       Config
	logger    *zap.Logger
	handler   http.Handler
}

func New(assistant Assistant, cfg Config, log *zap.Logger) *Server {
	s := &Server{
		assistant: assistant,
		cfg:       cfg.withDefaults(),
		logger:    logger.WithComponent(log, "http", ""),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(assets)))
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/resume/upload", s.handleResumeUpload)
	mux.HandleFunc("POST /api/jd/update", s.handleJobDescriptionUpdate)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/history/clear", s.handleHistoryClear)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	return s.requestID(s.accessLog(s.recoverer(c.Handler(mux))))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return <-errCh
}
