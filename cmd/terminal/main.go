package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/api"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/orders"
	"github.com/kiwari-pos/terminal/internal/poller"
	"github.com/kiwari-pos/terminal/internal/tables"
	"github.com/kiwari-pos/terminal/internal/ws"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Load()
	restaurantID, err := uuid.Parse(cfg.RestaurantID)
	if err != nil {
		log.Fatal("RESTAURANT_ID is not a valid uuid", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})

	pair, err := client.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		log.Fatal("login", zap.Error(err))
	}
	source, err := auth.NewSource(client, pair)
	if err != nil {
		log.Fatal("token source", zap.Error(err))
	}
	client.SetTokenSource(source)

	restaurant, err := client.GetRestaurant(ctx, restaurantID)
	if err != nil {
		log.Fatal("fetch restaurant settings", zap.Error(err))
	}

	notify := orders.NotifierFunc(func(msg string) {
		log.Warn("user notification", zap.String("message", msg))
	})
	coordinator := orders.NewCoordinator(client, restaurant, notify, log)
	manager := tables.NewManager(client, notify, log)

	if err := coordinator.Refresh(ctx); err != nil {
		log.Fatal("hydrate orders", zap.Error(err))
	}
	if err := manager.Refresh(ctx); err != nil {
		log.Fatal("hydrate tables", zap.Error(err))
	}

	feedURL := cfg.WSURL + "/restaurants/" + restaurantID.String() + "/orders"
	feed := ws.NewFeed(feedURL, source.Token, coordinator, manager, log)
	go feed.Run(ctx)

	p := poller.New(cfg.PollInterval, log, coordinator, manager)
	go p.Run(ctx)

	log.Info("terminal engine running",
		zap.String("restaurant", restaurant.Name),
		zap.Bool("order_tracking", restaurant.OrderTrackingEnabled))
	<-ctx.Done()
	log.Info("shutting down")
}
