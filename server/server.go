package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/observability"
	"github.com/kbukum/sttkit/server/endpoint"
	"github.com/kbukum/sttkit/server/middleware"
)

// Server is the sttd HTTP server: a Gin engine served over HTTP/1.1 and
// h2c on one port.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	listener   net.Listener
}

// New creates a new Server. No middleware or routes are registered yet.
func New(cfg Config, log *logger.Logger) *Server {
	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the h2c-wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ApplyMiddleware applies the standard middleware stack: recovery, request
// id, metrics, CORS, rate limit, body-size limit and request logging.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Metrics(metrics))
	s.engine.Use(middleware.CORS(s.config.CORS))
	s.engine.Use(middleware.RateLimit(s.config.RateLimit))
	s.engine.Use(middleware.BodySizeLimit(ParseSize(s.config.MaxBodySize, 1<<30)))
	s.engine.Use(middleware.RequestLogger(s.log))
}

// API holds what the transcription routes are served from.
type API struct {
	Service     string
	Version     string
	Transcriber endpoint.Transcriber
	Providers   endpoint.Describer
	// SpoolDir receives uploads while they are transcribed. Empty uses the OS temp dir.
	SpoolDir string
}

// RegisterRoutes registers the system endpoints and the /v1 API. /v1 requires
// an API key when Config.APIKeys is set.
func (s *Server) RegisterRoutes(api API) {
	s.engine.GET("/health", endpoint.Health(api.Service))
	s.engine.GET("/ready", endpoint.Readiness(api.Service, api.Version, api.Providers))
	s.engine.GET("/info", endpoint.Info(api.Service))

	v1 := s.engine.Group("/v1", middleware.Auth(middleware.AuthConfig{Keys: s.config.APIKeys}))
	v1.POST("/transcriptions", endpoint.Transcriptions(api.Transcriber, api.SpoolDir))
	v1.GET("/providers", endpoint.Providers(api.Providers))
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests up
// to ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
