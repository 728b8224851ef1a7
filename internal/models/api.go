package models

import "github.com/shopspring/decimal"

// Request and response bodies for the HTTP surface. The acting user id is
// carried in the body; authentication happens upstream of this service.

type EnsureUserRequest struct {
	UserId     int64  `json:"user_id"`
	ReferrerId *int64 `json:"referrer_id,omitempty"`
}

type StartSessionRequest struct {
	UserId   int64 `json:"user_id"`
	WantsVip bool  `json:"wants_vip,omitempty"`
}

type AdSummary struct {
	Id      int64  `json:"id"`
	Title   string `json:"title"`
	Seconds int    `json:"seconds"`
}

type StartSessionResponse struct {
	SessionId string    `json:"session_id"`
	Seconds   int       `json:"seconds"`
	Reward    Balances  `json:"reward"`
	Ad        AdSummary `json:"ad"`
	Seen      int       `json:"seen"`
	Limit     int       `json:"limit"`
}

type CompleteSessionRequest struct {
	UserId    int64  `json:"user_id"`
	SessionId string `json:"session_id"`
}

type CompleteSessionResponse struct {
	Already  bool     `json:"already,omitempty"`
	Balances Balances `json:"balances"`
}

type ConvertRequest struct {
	UserId    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
}

type ConvertResponse struct {
	Balances Balances `json:"balances"`
}

type WithdrawRequestBody struct {
	UserId      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

type WithdrawResponse struct {
	Id          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
}

// ErrorResponse is the uniform error envelope. Remaining is populated only
// for too_early rejections, Limit only for daily_limit rejections.
type ErrorResponse struct {
	Error     string           `json:"error"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
	Limit     int              `json:"limit,omitempty"`
}
