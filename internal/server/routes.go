package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"polyculture/internal/config"
	"polyculture/internal/game"
	"polyculture/internal/leaderboard"
	"polyculture/internal/questions"
	"polyculture/internal/rooms"
	"polyculture/internal/wshub"
)

func Run() error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	srv := &Server{
		Rooms: rooms.NewStore(),
		Games: game.NewManager(logger),
		Hub:   wshub.NewHub(logger),
		Log:   logger,
	}

	// Question source: postgres when configured, else the JSON file, else
	// the built-in set.
	if cfg.DatabaseURL != "" {
		db, err := questions.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, running without it", "error", err)
		} else {
			srv.DB = db
			srv.Source = questions.NewDBSource(db, logger)
			logger.Info("connected to postgres")
		}
	}
	if srv.Source == nil {
		fs, err := questions.NewFileSource(cfg.QuestionsFile)
		if err != nil {
			logger.Warn("questions file unavailable, using built-in set", "path", cfg.QuestionsFile, "error", err)
			srv.Source = questions.StaticSource(questions.Fallback(10))
		} else {
			srv.Source = fs
			logger.Info("loaded questions file", "path", cfg.QuestionsFile, "themes", len(fs.Themes()))
		}
	}

	// Optional redis leaderboard
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, leaderboard disabled", "error", err)
		} else {
			srv.Board = leaderboard.NewRepository(client)
			logger.Info("connected to redis")
		}
	}

	gameCfg := game.DefaultConfig()
	gameCfg.QuestionTime = time.Duration(cfg.QuestionTime) * time.Second
	srv.GameCfg = gameCfg

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/leaderboard", srv.handleLeaderboard)
	mux.Handle("/metrics", promhttp.Handler())

	addr := "0.0.0.0:" + cfg.Port
	logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
