package service

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/cs2kit/internal/auth"
	"github.com/danmuck/cs2kit/internal/bridge"
	"github.com/danmuck/cs2kit/internal/convert"
	"github.com/danmuck/cs2kit/internal/observability"
	"github.com/danmuck/cs2kit/internal/schemafile"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

const (
	contentTypeCS2  = "text/plain; charset=utf-8"
	contentTypeYAML = "application/yaml"
	contentTypeJSON = "application/json"
)

// Server exposes the converter over HTTP.
type Server struct {
	Name         string
	Addr         string
	MaxBodyBytes int64
	Converter    *convert.Converter
	Appeared     time.Time
	// Auth guards /v1 when set.
	Auth auth.Validator

	router *gin.Engine
}

type Config struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
	APIToken     string
}

func New(cfg Config, converter *convert.Converter) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:         cfg.Name,
		Addr:         cfg.Addr,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Converter:    converter,
		Appeared:     time.Now(),
		router:       r,
	}
	if cfg.APIToken != "" {
		s.Auth = auth.StaticToken{Token: cfg.APIToken}
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	log.Info().Str("service", s.Name).Str("addr", s.Addr).Strs("schemas", s.Converter.Registry.Names()).Msg("cs2d listening")
	return s.router.Run(s.Addr)
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		names := s.Converter.Registry.Names()
		status := http.StatusOK
		if len(names) == 0 {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   len(names) > 0,
			"schemas": len(names),
			"service": s.Name,
			"version": version,
		})
	})

	v1 := r.Group("/v1")
	if s.Auth != nil {
		v1.Use(auth.Middleware(s.Auth))
	}
	v1.GET("/schemas", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"schemas": s.Converter.Registry.Names()})
	})
	v1.GET("/schemas/:tag", func(c *gin.Context) {
		schema, err := s.Converter.Schema(c.Param("tag"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, schemafile.Describe(schema))
	})
	v1.POST("/decode/:tag", s.handleDecode)
	v1.POST("/encode/:tag", s.handleEncode)
}

// handleDecode converts a CS2 body to JSON, or YAML with ?format=yaml.
func (s *Server) handleDecode(c *gin.Context) {
	format, err := bridge.ParseFormat(c.DefaultQuery("format", string(bridge.JSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	out, err := s.Converter.ToDocument(c.Param("tag"), format, body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, documentContentType(format), out)
}

// handleEncode converts a JSON body, or YAML with ?format=yaml, to CS2 text.
func (s *Server) handleEncode(c *gin.Context) {
	format, err := bridge.ParseFormat(c.DefaultQuery("format", string(bridge.JSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	out, err := s.Converter.FromDocument(c.Param("tag"), format, body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeCS2, out)
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return body, true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusUnprocessableEntity
	if errors.Is(err, convert.ErrUnknownSchema) {
		status = http.StatusNotFound
	}
	log.Debug().
		Str("request_id", observability.RequestIDFrom(c)).
		Str("schema", c.Param("tag")).
		Err(err).
		Msg("conversion failed")
	info := convert.Describe(err)
	observability.SetErrorKind(c, info.Kind)
	c.JSON(status, info)
}

func documentContentType(f bridge.Format) string {
	if f == bridge.YAML {
		return contentTypeYAML
	}
	return contentTypeJSON
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
