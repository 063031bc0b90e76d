package app

import (
	"net/http"
	"time"

	"filegate/internal/config"
	"filegate/internal/handler"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Server struct {
	router *mux.Router
	logger *zap.SugaredLogger
}

func NewServer(
	cfg *config.Config,
	pageHandler *handler.PageHandler,
	loginHandler *handler.LoginHandler,
	fileHandler *handler.FileHandler,
	categoryHandler *handler.CategoryHandler,
	webhookHandler *handler.WebhookHandler,
	bingHandler *handler.BingHandler,
	logger *zap.SugaredLogger,
) *Server {
	router := mux.NewRouter()

	router.Use(handler.WithAuth(cfg))

	pageHandler.RegisterRoutes(router)
	loginHandler.RegisterRoutes(router)
	fileHandler.RegisterRoutes(router)
	categoryHandler.RegisterRoutes(router)
	webhookHandler.RegisterRoutes(router)
	bingHandler.RegisterRoutes(router)

	// raw file serving is the fallback for everything else
	fileHandler.RegisterCatchAll(router)

	return &Server{router: router, logger: logger}
}

func (s *Server) Run(port string) error {
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)

	srv := &http.Server{
		Handler:      cors(s.router),
		Addr:         ":" + port,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	s.logger.Infow("server starting", "port", port)
	return srv.ListenAndServe()
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
