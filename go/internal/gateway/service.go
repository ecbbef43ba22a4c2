package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Feed is a source of committed changes, such as a statusdb.Listener or a
// bus.Consumer.
type Feed interface {
	Start(ctx context.Context) error
}

// Service is the realtime gateway: REST access to records plus websocket
// fan-out of the change feed.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	handler           *Handler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	RequestTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		RequestTimeout:   30 * time.Second,
	}
}

// NewService creates the gateway over store. Changes must be fed to
// Dispatcher by a Feed or by the store itself.
func NewService(config Config, store RecordStore) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		handler:           NewHandler(store),
	}
}

// Dispatcher receives the changes broadcast to websocket clients
func (s *Service) Dispatcher() realtime.Dispatcher {
	return s.connectionManager
}

// Start runs the connection manager and the feeds until ctx is done
func (s *Service) Start(ctx context.Context, feeds ...Feed) error {
	log.Info().Int("feeds", len(feeds)).Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	for _, feed := range feeds {
		go func(feed Feed) {
			if err := feed.Start(ctx); err != nil {
				log.Error().Err(err).Msg("change feed failed")
			}
		}(feed)
	}

	<-ctx.Done()
	log.Info().Msg("gateway service stopped")
	return nil
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}

// Router builds the HTTP routes
func (s *Service) Router(requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws/rooms/{roomID}", s.wsHandler.HandleRoomConnection)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)

	r.Route("/api/rooms/{roomID}", func(rr chi.Router) {
		rr.Use(middleware.Timeout(requestTimeout))

		rr.Get("/", s.handler.GetRoom)
		rr.Put("/", s.handler.PutRoom)
		rr.Get("/statuses", s.handler.ListStatuses)
		rr.Put("/statuses/{userID}", s.handler.PutStatus)
		rr.Delete("/statuses/{userID}", s.handler.DeleteStatus)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// Handler returns the routes wrapped in CORS handling
func (s *Service) Handler(requestTimeout time.Duration) http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.Router(requestTimeout))
}
