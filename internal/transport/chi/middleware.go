package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	logpkg "github.com/fal1winter/mentorsys/internal/logger"
	"github.com/fal1winter/mentorsys/internal/metrics"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	APIKeys      []string
	MaxBodyBytes int64
}

// NewRouter mounts every route behind the middleware chain:
// recovery, request id, wide event log, auth, metrics, body limit.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		JSONRecoverer(logger),
		chiMiddleware.RequestID,
		WideEventMiddleware(logger),
		BearerAuthMiddleware(cfg.APIKeys),
		metrics.Middleware(),
	)
	if cfg.MaxBodyBytes > 0 {
		r.Use(chiMiddleware.RequestSize(cfg.MaxBodyBytes))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	s.Routes(r)
	return r
}

// JSONRecoverer turns a handler panic into a 500 operation failure.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func JSONRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rvr)
				}
				logger.Error("Handler panicked",
					zap.Any("panic", rvr),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"),
				)
				writeJSON(w, http.StatusInternalServerError, opFailure("internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WideEventMiddleware writes one "http_request" line per request and echoes X-Request-ID.
// Handlers log through logger.FromContext and inherit the request id.
// 5xx responses log at error level, 4xx at warn.
func WideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields = append(fields, zap.String("route", pattern))
				}
			}
			reqLogger.Log(eventLevel(status), "http_request", fields...)
		})
	}
}

func eventLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
