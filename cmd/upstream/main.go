package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/botmux/botmux/internal/config"
	"github.com/botmux/botmux/internal/upstream"
	"github.com/botmux/botmux/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		addr       = flag.String("addr", ":3000", "listen address")
	)
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{Path: *configPath})
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.Logging)

	hub := upstream.NewHub(logger)
	if err := hub.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer hub.Stop()

	server := upstream.NewServer(hub, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", server.Routes())

	logger.Info("upstream listening", "addr", *addr)

	if err := http.ListenAndServe(*addr, r); err != nil {
		fmt.Println(err)
	}
}
