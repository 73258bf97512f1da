package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/botmux/botmux/binder"
	"github.com/botmux/botmux/domain"
	"github.com/botmux/botmux/gateway"
	"github.com/botmux/botmux/internal/config"
	"github.com/botmux/botmux/internal/eventbus"
	"github.com/botmux/botmux/logging"
	"github.com/botmux/botmux/registry"
	"github.com/botmux/botmux/router"
)

func main() {
	var configPath = flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{Path: *configPath})
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.Logging)
	ctx := logging.WithLogger(context.Background(), logger)

	bus := eventbus.NewInMemoryBus(100)
	bus.Start(ctx)
	defer bus.Stop()

	bus.SubscribeAll(func(event *eventbus.Event) {
		logger.Debug("lifecycle event", "type", event.Type, "source", event.Source)
	})

	sessions := registry.New(logger)
	channel := gateway.New(gatewayOptions(cfg), logger, bus)
	sessions.OnTeardown(func() {
		if err := channel.Teardown(); err != nil {
			logger.Error("channel teardown failed", "error", err)
		}
	})

	b := binder.New(channel, sessions, router.New(logger), logger, bus)

	registrations := []domain.Registration{
		{
			ID: "mention-trigger",
			Parameters: map[string]any{
				"listenValue": "botmux",
			},
			Active:      true,
			Credentials: domain.Credentials{Token: os.Getenv("BOTMUX_BOT_TOKEN")},
		},
		{
			ID: "member-trigger",
			Parameters: map[string]any{
				"events": []string{"guildMemberAdd", "guildMemberRemove"},
			},
			Active:      true,
			Credentials: domain.Credentials{Token: os.Getenv("BOTMUX_BOT_TOKEN")},
		},
	}

	for _, reg := range registrations {
		id := reg.ID
		sink := domain.SinkFunc(func(ctx context.Context, batch []domain.Record) error {
			for _, record := range batch {
				logger.Info("event delivered", "client_id", id, "record", record)
			}
			return nil
		})

		if err := b.Activate(ctx, reg, sink); err != nil {
			log.Fatal(err)
		}
	}

	logger.Info("triggers active",
		"count", sessions.Count(),
		"bound", sessions.RegisteredIDs(),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	for _, reg := range registrations {
		if err := b.Deactivate(ctx, reg.ID, true); err != nil {
			logger.Warn("deactivation error", "client_id", reg.ID, "error", err)
		}
	}
}

func gatewayOptions(cfg *config.Config) gateway.Options {
	return gateway.Options{
		URL:            cfg.Upstream.URL,
		DialTimeout:    cfg.Upstream.DialTimeout,
		MaxDialRetries: cfg.Upstream.MaxDialRetries,
		WriteTimeout:   cfg.Channel.WriteTimeout,
		ReadTimeout:    cfg.Channel.ReadTimeout,
		PingInterval:   cfg.Channel.PingInterval,
		MaxMessageSize: cfg.Channel.MaxMessageSize,
		SendBuffer:     cfg.Channel.SendBuffer,
	}
}
