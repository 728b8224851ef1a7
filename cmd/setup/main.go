package main

import (
	"context"
	"flag"

	"adwatch-rewards-go/internal/common"
	"adwatch-rewards-go/internal/config"
	"adwatch-rewards-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// setup initializes the canonical schema and optionally seeds a few demo ads
// so a fresh deployment has something to serve.
func main() {
	seedAds := flag.Bool("seed-ads", false, "Insert demo advertisements after schema setup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	rewardStore, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize reward store", zap.Error(err))
	}
	defer rewardStore.Close()

	zap.L().Info("Schema initialized", zap.String("database", cfg.Database.Path))

	if !*seedAds {
		return
	}

	maxClicks := int64(1000)
	ads := []models.Ad{
		{Title: "Intro clip", Seconds: 15},
		{Title: "Long feature", Seconds: 30, RewardTl: decimal.RequireFromString("0.40"), RewardDiamonds: decimal.RequireFromString("0.40"), MaxClicks: &maxClicks},
		{Title: "VIP exclusive", Seconds: 20, VipOnly: true},
	}
	for _, ad := range ads {
		id, err := rewardStore.CreateAd(ctx, ad)
		if err != nil {
			zap.L().Error("Failed to seed ad", zap.String("title", ad.Title), zap.Error(err))
			continue
		}
		zap.L().Info("Demo ad created", zap.Int64("id", id), zap.String("title", ad.Title))
	}
}
