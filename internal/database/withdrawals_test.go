package database

import (
	"context"
	"errors"
	"testing"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestConvert_TlToDiamond(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Credit(ctx, 1, decimal.NewFromInt(10), decimal.Zero); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	balances, err := service.Convert(ctx, 1, decimal.NewFromInt(4), store.DirectionTlToDiamond)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	mustEqual(t, balances.Tl, decimal.NewFromInt(6), "tl after conversion")
	mustEqual(t, balances.Diamonds, decimal.NewFromInt(4), "diamonds after conversion")
}

func TestConvert_DiamondToTl(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Credit(ctx, 1, decimal.Zero, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	balances, err := service.Convert(ctx, 1, decimal.NewFromInt(2), store.DirectionDiamondToTl)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	mustEqual(t, balances.Tl, decimal.NewFromInt(2), "tl after conversion")
	mustEqual(t, balances.Diamonds, decimal.NewFromInt(3), "diamonds after conversion")
}

func TestConvert_InsufficientFunds(t *testing.T) {
	service := newTestService(t)

	_, err := service.Convert(context.Background(), 1, decimal.NewFromInt(1), store.DirectionTlToDiamond)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
}

func TestConvert_RejectsBadInput(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Convert(ctx, 1, decimal.Zero, store.DirectionTlToDiamond); !errors.Is(err, store.ErrBadAmount) {
		t.Errorf("Expected ErrBadAmount for zero amount, got %v", err)
	}
	if _, err := service.Convert(ctx, 1, decimal.NewFromInt(1), "sideways"); !errors.Is(err, store.ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}
}

func TestRequestWithdraw_HoldsFunds(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Credit(ctx, 1, decimal.NewFromInt(25), decimal.Zero); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	request, err := service.RequestWithdraw(ctx, 1, decimal.NewFromInt(15), "IBAN TR00 0000")
	if err != nil {
		t.Fatalf("RequestWithdraw failed: %v", err)
	}
	if request.Status != models.WithdrawStatusPending {
		t.Errorf("Expected pending status, got %s", request.Status)
	}
	mustEqual(t, request.Amount, decimal.NewFromInt(15), "request amount")

	balances, err := service.GetBalances(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	mustEqual(t, balances.Tl, decimal.NewFromInt(10), "tl after hold")

	// The held funds cannot be withdrawn again.
	_, err = service.RequestWithdraw(ctx, 1, decimal.NewFromInt(15), "IBAN TR00 0000")
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance on second request, got %v", err)
	}
}

func TestRequestWithdraw_EnforcesMinimum(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Credit(ctx, 1, decimal.NewFromInt(25), decimal.Zero); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := service.RequestWithdraw(ctx, 1, decimal.NewFromInt(5), "IBAN TR00 0000")
	if !errors.Is(err, store.ErrMinWithdraw) {
		t.Fatalf("Expected ErrMinWithdraw, got %v", err)
	}
	_, err = service.RequestWithdraw(ctx, 1, decimal.NewFromInt(-1), "IBAN TR00 0000")
	if !errors.Is(err, store.ErrBadAmount) {
		t.Fatalf("Expected ErrBadAmount, got %v", err)
	}
	_, err = service.RequestWithdraw(ctx, 1, decimal.NewFromInt(15), "")
	if !errors.Is(err, store.ErrBadAmount) {
		t.Fatalf("Expected ErrBadAmount for empty destination, got %v", err)
	}
}

func TestListWithdrawRequests_NewestFirst(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if err := service.Credit(ctx, 1, decimal.NewFromInt(100), decimal.Zero); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	for _, amount := range []int64{10, 20, 30} {
		if _, err := service.RequestWithdraw(ctx, 1, decimal.NewFromInt(amount), "IBAN TR00 0000"); err != nil {
			t.Fatalf("RequestWithdraw failed: %v", err)
		}
	}

	requests, err := service.ListWithdrawRequests(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListWithdrawRequests failed: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("Expected limit to cap at 2 requests, got %d", len(requests))
	}
	mustEqual(t, requests[0].Amount, decimal.NewFromInt(30), "newest request amount")
}
