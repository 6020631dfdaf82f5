package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/FitrahHaque/wzip/engine"
)

const ModeHeader = "X-Wzip-Mode"

type Options struct {
	Listen          string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	engine *engine.Engine
	opts   Options
	router *mux.Router
	log    *logrus.Entry
}

func New(e *engine.Engine, opts Options) (*Server, error) {
	if e == nil {
		return nil, errors.New("engine cannot be nil")
	}

	if opts.MaxBodyBytes <= 0 {
		return nil, errors.New("max body bytes must be positive")
	}

	s := &Server{
		engine: e,
		opts:   opts,
		router: mux.NewRouter(),
		log:    logrus.WithField("pkg", "server"),
	}

	s.router.HandleFunc("/", s.handle(engine.ModeAuto)).Methods(http.MethodPost)
	s.router.HandleFunc("/compress", s.handle(engine.ModeCompress)).Methods(http.MethodPost)
	s.router.HandleFunc("/decompress", s.handle(engine.ModeDecompress)).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Use(s.logRequests)

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return errors.Wrapf(err, "unable to listen on '%s'", s.opts.Listen)
	}

	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("listening on %s", ln.Addr())

		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Debug("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "unable to shut down cleanly")
		}

		return nil
	})

	return g.Wait()
}

// handle returns a handler that runs the request body through the engine.
// The result is buffered so that a failure can still be reported with a
// proper status code.
func (s *Server) handle(mode engine.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		llog := s.log.WithFields(logrus.Fields{"method": "handle", "mode": mode})

		e, err := s.engineFor(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		defer body.Close()

		var out bytes.Buffer
		stats, err := e.Run(r.Context(), mode, body, &out)
		if err != nil {
			status := statusFor(err)
			llog.Debugf("request failed with %d: %s", status, err)
			http.Error(w, err.Error(), status)
			return
		}

		contentType := "application/octet-stream"
		if stats.Mode == engine.ModeCompress {
			contentType = stats.Format.ContentType()
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
		w.Header().Set(ModeHeader, stats.Mode.String())
		w.WriteHeader(http.StatusOK)

		if _, err := out.WriteTo(w); err != nil {
			llog.Warnf("unable to write response: %s", err)
		}
	}
}

// engineFor applies the optional level and format query parameters.
func (s *Server) engineFor(r *http.Request) (*engine.Engine, error) {
	query := r.URL.Query()
	if !query.Has("level") && !query.Has("format") {
		return s.engine, nil
	}

	opts := s.engine.Options()

	if v := query.Get("level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Errorf("level %q is not a number", v)
		}
		opts.Level = level
	}

	if v := query.Get("format"); v != "" {
		format, err := engine.ParseFormat(v)
		if err != nil {
			return nil, err
		}
		opts.Format = format
	}

	return engine.New(opts)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok\n"))
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	kind := engine.Classify(err)

	switch {
	case kind == engine.KindInvalidOptions, kind.BadInput(), kind.Integrity():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"http_method": r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"took":        time.Since(start),
		}).Debug("request")
	})
}
