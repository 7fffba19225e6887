package server

import (
	"log/slog"
	"net/http"
	"time"

	"exportal/internal/blobstore"
	"exportal/internal/config"
	"exportal/internal/reconcile"
	"exportal/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second

	loginMaxFailures = 5
	loginWindow      = 5 * time.Minute
	loginBlockedFor  = 15 * time.Minute
)

// Server wraps HTTP handlers for the exportal API.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	blobs  blobstore.BlobStore
	logger *slog.Logger

	authService  *AuthService
	loginLimiter *loginRateLimiter

	certificates *reconcile.Reconciler
	products     *reconcile.Reconciler
	carousel     *reconcile.Reconciler
	jumbotron    *reconcile.Reconciler
}

// New creates a new server instance.
func New(cfg *config.Config, st *store.Store, blobs blobstore.BlobStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour

	return &Server{
		cfg:          cfg,
		store:        st,
		blobs:        blobs,
		logger:       logger,
		authService:  NewAuthService(st, sessionTTL),
		loginLimiter: newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockedFor),
		certificates: reconcile.New("certificates", certificateSlots, store.CertificateRepository{Store: st}, blobs, logger),
		products:     reconcile.New("products", productSlots, store.ProductRepository{Store: st}, blobs, logger),
		carousel:     reconcile.New("carousel", carouselSlots, store.CarouselRepository{Store: st}, blobs, logger),
		jumbotron:    reconcile.New("jumbotron", jumbotronSlots, store.JumbotronRepository{Store: st}, blobs, logger),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.cfg.ListenAddr)
	server := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return server.ListenAndServe()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
