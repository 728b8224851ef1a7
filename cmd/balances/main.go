package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"adwatch-rewards-go/internal/common"
	"adwatch-rewards-go/internal/config"

	"go.uber.org/zap"
)

// balances is an operator tool: prints a user's balances, today's watch
// count, and their most recent referral earnings and withdraw requests.
func main() {
	userId := flag.Int64("user", 0, "Platform user id to inspect")
	limit := flag.Int("limit", 10, "How many recent rows to print")
	flag.Parse()

	if *userId <= 0 {
		fmt.Println("Usage: balances -user <id> [-limit n]")
		os.Exit(1)
	}

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

	balances, err := rewardStore.GetBalances(ctx, *userId)
	if err != nil {
		zap.L().Fatal("Failed to read balances", zap.Error(err))
	}
	seen, err := rewardStore.TodayCount(ctx, *userId)
	if err != nil {
		zap.L().Fatal("Failed to read daily counter", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("User %d", *userId), common.DefaultWidth)
	fmt.Printf("TL balance:      %s\n", balances.Tl.String())
	fmt.Printf("Diamond balance: %s\n", balances.Diamonds.String())
	fmt.Printf("Watched today:   %d / %d\n", seen, cfg.Rewards.DailyLimit)

	earnings, err := rewardStore.ReferralEarnings(ctx, *userId, *limit)
	if err != nil {
		zap.L().Fatal("Failed to read referral earnings", zap.Error(err))
	}
	if len(earnings) > 0 {
		common.PrintHeader("Recent referral earnings", common.DefaultWidth)
		for _, e := range earnings {
			fmt.Printf("%s  from user %-12d  +%s TL  +%s diamonds\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.ReferredId, e.AmountTl.String(), e.AmountDiamonds.String())
		}
	}

	requests, err := rewardStore.ListWithdrawRequests(ctx, *userId, *limit)
	if err != nil {
		zap.L().Fatal("Failed to read withdraw requests", zap.Error(err))
	}
	if len(requests) > 0 {
		common.PrintHeader("Withdraw requests", common.DefaultWidth)
		for _, r := range requests {
			fmt.Printf("%s  %-10s  %s TL  -> %s\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Status, r.Amount.String(), r.Destination)
		}
	}

	common.PrintFooter("Done", common.DefaultWidth)
}
