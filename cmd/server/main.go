package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"cyberlaw-advisor/backend/internal/api"
	"cyberlaw-advisor/backend/internal/config"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	server, err := api.NewServer(api.Config{
		DBPath:           cfg.DatabasePath,
		DatasetPath:      cfg.DatasetPath,
		AllowedOrigins:   cfg.AllowedOrigins,
		Gemini:           cfg.Gemini,
		OpenAI:           cfg.OpenAI,
		DisableAI:        cfg.DisableAI,
		ProcedureTimeout: cfg.ProcedureTimeout,
		SessionTTL:       cfg.SessionTTL,
		CookieSecure:     cfg.CookieSecure,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.Infof("starting cyber law advisor on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
