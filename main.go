package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/survey-editor/app"
	"github.com/mbolis/survey-editor/config"
	"github.com/mbolis/survey-editor/database"
	"github.com/mbolis/survey-editor/httpx"
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/routes"
	"github.com/mbolis/survey-editor/session"
	"github.com/mbolis/survey-editor/upstream"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	client := upstream.NewClient(cfg.APIUrl, upstream.StaticToken(cfg.APIToken))
	sessions := session.NewManager(client, session.NewStore(db))

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Upstream:     client,
		Sessions:     sessions,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
