// Package http serves the typed RPC surface under /rpc/{operation}.
package http

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"renovo/internal/core"
	"renovo/internal/log"
	"renovo/internal/middleware/ratelimit"
	"renovo/internal/middleware/security"
	"renovo/internal/middleware/trace"
	"renovo/internal/services"
)

// DefaultMaxBodyBytes caps request bodies; imports arrive base64-encoded inline.
const DefaultMaxBodyBytes = 10 << 20

type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	MaxBodyBytes       int64
	TrustedProxies     []string
	Now                func() time.Time
}

type Server struct {
	http.Server
	svc        *services.Services
	procedures map[string]procedure
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	logger     *log.Logger
	events     *log.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.Services, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	limits := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limits.RequestsPerMinute = opts.RateLimitPerMinute
	}

	rpcLogger := logger.WithComponent(log.ComponentRPC)
	detector, err := security.NewDetector(logger, opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:        svc,
		procedures: procedures(svc, now),
		limiter:    ratelimit.NewLimiter(limits),
		detector:   detector,
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		logger:     rpcLogger,
		events:     log.NewStructuredLogger(rpcLogger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/rpc/{op}", s.handleRPC)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = limitBody(maxBody, handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Operations lists the registered operation names.
func (s *Server) Operations() []string {
	names := make([]string, 0, len(s.procedures))
	for name := range s.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("op")
	p, ok := s.procedures[name]
	if !ok {
		s.writeError(w, r, name, &core.Error{Kind: core.KindNotFound, Message: "unknown operation " + name})
		return
	}

	switch {
	case r.Method == http.MethodPost:
	case r.Method == http.MethodGet && p.kind == query:
	default:
		allow := "GET, POST"
		if p.kind == mutation {
			allow = "POST"
		}
		w.Header().Set("Allow", allow)
		s.writeError(w, r, name, &core.Error{Kind: kindMethodNotAllowed, Message: name + " is a " + p.kind.String() + "; use " + allow})
		return
	}

	if p.kind == mutation {
		clientIP := s.detector.ExtractClientIP(r)
		if ok, wait := s.limiter.Reserve(clientIP); !ok {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldOperation, name)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			s.writeError(w, r, name, &core.Error{Kind: kindRateLimited, Message: "rate limit exceeded, try again later"})
			return
		}
	}

	raw, err := readInput(r)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}
	out, err := p.call(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, name, err)
		return
	}
	writeData(w, out)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether storage answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func limitBody(max int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, max)
		}
		next.ServeHTTP(w, r)
	})
}
