package main

import (
	"net/http"

	"math-chat/internal/api/handlers"
	"math-chat/internal/config"
	"math-chat/internal/llm"
	"math-chat/internal/logger"
	"math-chat/internal/repository/postgres"
	conversationService "math-chat/internal/service/conversation"
	"math-chat/pkg/validation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local development
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using environment")
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	store, err := postgres.NewPostgresStore(appConfig.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	provider := llm.NewAnthropicProvider(&appConfig.Anthropic, appConfig.Models)
	service := conversationService.NewConversationService(store, provider, appConfig)
	validator := validation.NewConversationRequestValidator(appConfig.Models)
	conversationHandlers := handlers.NewConversationHandlers(service, validator)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.RequestLogger)
	r.Use(handlers.CORS(appConfig.Server.CORSOrigin))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/conversation", conversationHandlers.Routes())
		r.Post("/chat", conversationHandlers.Chat)
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	addr := ":" + appConfig.Server.Port
	logger.Log.WithField("addr", addr).Info("Server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.WithError(err).Fatal("Server failed to start")
	}
}
