package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apimiddleware "github.com/piwi3910/nebulaio/internal/api/middleware"
	"github.com/piwi3910/nebulaio/internal/api/s3"
	"github.com/piwi3910/nebulaio/internal/auth"
	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/config"
	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/piwi3910/nebulaio/internal/health"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/internal/router"
	"github.com/piwi3910/nebulaio/internal/shutdown"
	"github.com/piwi3910/nebulaio/internal/storage/fs"
	"github.com/piwi3910/nebulaio/internal/website"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server is the emulator's single HTTP listener: the S3 REST API, the
// static-website-hosting surface, and a small admin surface (health and
// Prometheus metrics) all multiplexed off one chi router, the way the
// teacher splits concerns into middleware rather than separate processes.
type Server struct {
	cfg *config.Config

	store   metadata.Store
	storage *fs.Backend

	authService    *auth.Service
	bucketService  *bucket.Service
	objectService  *object.Service
	emitter        *events.Emitter
	healthChecker  *health.Checker
	websiteHandler *website.Handler

	httpServer          *http.Server
	shutdownCoordinator *shutdown.Coordinator
}

// New builds a Server from a validated config. It wires the metadata
// store, the filesystem storage backend, and the auth/bucket/object
// services, then applies any --configure-bucket preconfiguration before
// returning, so that by the time Start is called the listener can accept
// traffic for a bucket that already exists.
func New(cfg *config.Config) (*Server, error) {
	storage, err := fs.New(fs.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("server: init storage backend: %w", err)
	}

	store := metadata.NewMemStore()

	authService := auth.NewService(auth.Config{AllowMismatchedSignatures: cfg.AllowMismatchedSignatures})
	bucketService := bucket.NewService(store, storage)
	objectService := object.NewService(store, storage, bucketService)
	healthChecker := health.NewChecker(store, storage)

	srv := &Server{
		cfg:                 cfg,
		store:               store,
		storage:             storage,
		authService:         authService,
		bucketService:       bucketService,
		objectService:       objectService,
		healthChecker:       healthChecker,
		websiteHandler:      website.NewHandler(bucketService, objectService),
		shutdownCoordinator: shutdown.NewCoordinator(shutdown.DefaultConfig()),
	}

	if err := srv.applyBucketPreconfig(context.Background()); err != nil {
		return nil, err
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:           srv.buildRouter(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	return srv, nil
}

// SetEventHook wires an events.Hook into the object service, turning on
// best-effort notification delivery for object mutations. Unconfigured by
// default: the CLI surface has no flag for it yet.
func (s *Server) SetEventHook(hook events.Hook) {
	s.emitter = events.NewEmitter(hook)
	s.emitter.Start()
	s.objectService.SetEmitter(s.emitter)
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.RequestID)
	r.Use(apimiddleware.MetricsMiddleware)

	healthHandler := health.NewHandler(s.healthChecker)
	r.Get("/health", healthHandler.HealthHandler)
	r.Get("/health/live", healthHandler.LivenessHandler)
	r.Get("/health/ready", healthHandler.ReadinessHandler)
	r.Get("/health/detailed", healthHandler.DetailedHandler)
	r.Handle("/metrics", promhttp.Handler())

	corsMiddleware := apimiddleware.NewS3CORSMiddleware(s.bucketService)
	s3Auth := apimiddleware.S3Auth(apimiddleware.S3AuthConfig{
		AuthService:    s.authService,
		Region:         "",
		AllowAnonymous: true,
	})

	s3Handler := s3.NewHandler(s.authService, s.bucketService, s.objectService)
	s3Router := chi.NewRouter()
	s3Router.Use(corsMiddleware.Handler)
	s3Router.Use(s3Auth)
	s3Handler.RegisterRoutes(s3Router)

	routerCfg := router.Config{
		ServiceEndpoint:     s.cfg.ServiceEndpoint,
		DisableVHostBuckets: s.cfg.NoVHostBuckets,
	}

	r.Handle("/*", s.addressingMiddleware(routerCfg, s3Router))

	return r
}

// addressingMiddleware resolves path-style vs virtual-host-style
// addressing via internal/router before dispatching to either the S3 API
// router or the static website engine, mirroring the teacher's pattern of
// normalizing a request in middleware before a handler ever sees it.
func (s *Server) addressingMiddleware(cfg router.Config, s3Router http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := router.Resolve(r, cfg)

		if target.Service == router.ServiceS3Website && !router.IsSDKRequest(r) {
			s.websiteHandler.ServeBucket(w, r, target.Bucket, target.Key, target.VHost)
			return
		}

		s3Router.ServeHTTP(w, r)
	})
}

// applyBucketPreconfig creates the buckets named by --configure-bucket.
// Subresource configuration files listed alongside a bucket are not
// parsed or applied; a warning naming them is logged instead.
func (s *Server) applyBucketPreconfig(ctx context.Context) error {
	for _, pre := range s.cfg.ConfigureBuckets {
		if _, err := s.bucketService.CreateBucket(ctx, pre.Name); err != nil {
			return fmt.Errorf("server: preconfigure bucket %q: %w", pre.Name, err)
		}
		if len(pre.ConfigFiles) > 0 {
			log.Warn().Str("bucket", pre.Name).Strs("files", pre.ConfigFiles).
				Msg("bucket subresource preconfiguration files are not yet applied")
		}
	}
	return nil
}

// Start runs the listener until ctx is cancelled, then drains it through
// the shutdown coordinator.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
			log.Info().Str("addr", s.httpServer.Addr).Msg("starting TLS listener")
			err = s.httpServer.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			log.Info().Str("addr", s.httpServer.Addr).Msg("starting listener")
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown drains the listener and closes the storage/metadata layers
// through the shutdown coordinator's phased sequence.
func (s *Server) Shutdown(ctx context.Context) error {
	components := shutdown.ShutdownComponents{
		HTTPServers:    []shutdown.HTTPServerShutdown{namedHTTPServer{name: "s3", server: s.httpServer}},
		MetadataStore:  namedCloser{name: "metadata", closer: s.store},
		StorageBackend: s.storage,
	}
	if s.emitter != nil {
		s.emitter.Stop()
	}
	return s.shutdownCoordinator.Shutdown(ctx, components)
}

// namedHTTPServer adapts *http.Server to shutdown.HTTPServerShutdown.
type namedHTTPServer struct {
	name   string
	server *http.Server
}

func (n namedHTTPServer) Name() string { return n.name }

func (n namedHTTPServer) Shutdown(ctx context.Context) error { return n.server.Shutdown(ctx) }

// namedCloser adapts an io.Closer to shutdown.Closeable.
type namedCloser struct {
	name   string
	closer interface{ Close() error }
}

func (n namedCloser) Name() string { return n.name }

func (n namedCloser) Close() error { return n.closer.Close() }

// MetaStore exposes the metadata store for callers (e.g. tests) that need
// direct access outside the HTTP surface.
func (s *Server) MetaStore() metadata.Store {
	return s.store
}
