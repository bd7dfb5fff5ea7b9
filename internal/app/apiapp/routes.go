package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/chatwarden/internal/transport/http/handlers"
)

type Dependencies struct {
	Tokens   TokenParser
	Settings handlers.VotebanSettings
	Checks   map[string]handlers.HealthCheck
	Logger   *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Checks)
	settingsHandler := handlers.NewVotebanSettingsHandler(deps.Settings)
	authMW := AuthMiddleware(deps.Tokens, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.With(authMW).Get("/chats/{chatID}/voteban", settingsHandler.Get)
		r.With(authMW).Put("/chats/{chatID}/voteban", settingsHandler.Put)
	})
}
