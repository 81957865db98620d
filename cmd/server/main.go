package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/api"
	"github.com/rbraga/braga-ia/internal/config"
	"github.com/rbraga/braga-ia/internal/content"
	"github.com/rbraga/braga-ia/internal/db"
	"github.com/rbraga/braga-ia/internal/llm"
	"github.com/rbraga/braga-ia/internal/session"
	"github.com/rbraga/braga-ia/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer database.Close()

	codec := content.NewCodec()

	history := store.New(database, cfg.SnapshotKey, codec, logger)
	history.Load()

	capability, err := llm.New(context.Background(), cfg.APIKey, logger)
	if err != nil {
		logger.Fatal("failed to initialize generation service", zap.Error(err))
	}

	controller := session.NewController(history, capability, codec, logger)
	handler := api.NewHandler(controller, history, capability, logger)

	http.HandleFunc("/api/message", handler.HandleMessage)
	http.HandleFunc("/api/conversations", handler.HandleConversations)
	http.HandleFunc("/api/messages", handler.GetMessages)
	http.HandleFunc("/api/conversations/select", handler.SelectConversation)
	http.HandleFunc("/api/conversations/update", handler.UpdateConversation)
	http.HandleFunc("/api/conversations/delete", handler.DeleteConversation)
	http.HandleFunc("/api/video", handler.StartVideo)
	http.HandleFunc("/api/video/operation", handler.PollVideo)

	// Serve the chat UI
	fs := http.FileServer(http.Dir(cfg.StaticDir))
	http.Handle("/", fs)

	logger.Info("Starting server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
