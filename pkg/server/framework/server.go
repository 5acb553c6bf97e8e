// Package framework is a minimal web framework.
package framework

import (
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/healthwallet/shc-service/config"
)

type contextKey string

const (
	KeyRequestState  contextKey = "requestState"
	ShutdownErrorKey contextKey = "shutdownError"
)

func (c contextKey) String() string {
	return string(c)
}

// RequestState carries per-request bookkeeping set by the logger middleware
// and read back when the response is written.
type RequestState struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// Server is the entrypoint into our application and what configures our context object for each of our http router.
// Feel free to add any configuration data/logic on this Server struct.
type Server struct {
	*http.Server
	router   *gin.Engine
	tracer   trace.Tracer
	shutdown chan os.Signal
}

// NewServer creates a Server that handles a set of routes for the application.
func NewServer(cfg config.ServerConfig, handler *gin.Engine, shutdown chan os.Signal) *Server {
	var tracer trace.Tracer
	if cfg.JagerEnabled {
		tracer = otel.Tracer(config.ServiceName)
	}

	return &Server{
		Server: &http.Server{
			Addr:              cfg.APIHost,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		router:   handler,
		tracer:   tracer,
		shutdown: shutdown,
	}
}

// TracedHandler wraps a gin handler in a span, but only if the tracer is initialized.
func (s *Server) TracedHandler(path string, handler gin.HandlerFunc) gin.HandlerFunc {
	if s.tracer == nil {
		return handler
	}
	return func(c *gin.Context) {
		r := c.Request

		_, span := s.tracer.Start(c, path)
		traceID := span.SpanContext().TraceID().String()
		c.Set(KeyRequestState.String(), &RequestState{TraceID: traceID, Now: time.Now()})
		defer span.End()

		body, err := PeekRequestBody(r)
		if err != nil {
			// log the error and continue the trace with an empty body value
			logrus.WithError(err).Error("failed to read request body during tracing")
		}
		span.SetAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", path),
			attribute.String("host", r.Host),
			attribute.String("user-agent", r.UserAgent()),
			attribute.String("proto", r.Proto),
			attribute.String("body", body),
		)

		handler(c)
	}
}

// SignalShutdown is used to gracefully shut down the server when an integrity issue is identified.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}
