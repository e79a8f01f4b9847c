package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodPaypal PaymentMethod = "paypal"
	MethodPaytm  PaymentMethod = "paytm"
)

type Tier string

const (
	TierTrialDays Tier = "trial_days"
	TierWeekly    Tier = "weekly_sub"
	TierMonthly   Tier = "monthly_sub"
	TierYearly    Tier = "yearly_sub"
)

var Tiers = []Tier{TierTrialDays, TierWeekly, TierMonthly, TierYearly}

func (t Tier) Valid() bool {
	for _, known := range Tiers {
		if t == known {
			return true
		}
	}
	return false
}

// Customer is the identity data forwarded to a gateway on initiation.
type Customer struct {
	UserID string
	Email  string
	Phone  string
}

type InitiateRequest struct {
	Customer
	Tier   Tier
	Method PaymentMethod
}

type InitiateResponse struct {
	OrderID       string            `json:"orderId"`
	TransactionID string            `json:"transactionId"`
	PaymentID     string            `json:"paymentId,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Params        map[string]string `json:"params,omitempty"`
}

// GatewayInitiation is what a gateway adapter hands back for a new order.
type GatewayInitiation struct {
	PaymentID string
	Params    map[string]string
}

type ReconcileResult struct {
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	Integrity Integrity `json:"integrity"`
	Applied   bool      `json:"applied"`
}

// CaptureResult is the subset of a synchronous SDK capture response the
// reconciler needs.
type CaptureResult struct {
	PaymentID  string
	Status     string
	PayerEmail string
	PayerName  string
}

const CaptureStatusCompleted = "COMPLETED"

type TransactionResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	PaymentID     string          `json:"paymentId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Tier          Tier            `json:"subscriptionType"`
	Status        Status          `json:"status"`
	PayerEmail    string          `json:"payerEmail,omitempty"`
	PayerName     string          `json:"payerName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

func NewTransactionResponse(tx *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		OrderID:       tx.OrderID,
		PaymentID:     tx.PaymentID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PaymentMethod: tx.PaymentMethod,
		Tier:          tx.Tier,
		Status:        tx.Status,
		PayerEmail:    tx.PayerEmail,
		PayerName:     tx.PayerName,
		CreatedAt:     tx.CreatedAt,
		CompletedAt:   tx.CompletedAt,
	}
}

// SubscriptionEvent is emitted once per completed transaction so the user
// service can extend the subscription of the owning user.
type SubscriptionEvent struct {
	TransactionID string          `json:"transactionId"`
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Tier          Tier            `json:"subscriptionType"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CompletedAt   time.Time       `json:"completedAt"`
}

// Gateway callback status codes.
const (
	GatewayTxnSuccess = "TXN_SUCCESS"
	GatewaySuccess    = "SUCCESS"
	GatewayTxnFailure = "TXN_FAILURE"
	GatewayFailure    = "FAILURE"
	GatewayFailed     = "FAILED"
	GatewayPending    = "PENDING"

	// GatewayInitiateFailed marks records whose order could not be created
	// upstream.
	GatewayInitiateFailed = "INITIATE_FAILED"
	// GatewayExpired marks records cancelled by the pending sweep.
	GatewayExpired = "EXPIRED"
)

// GatewayStatusTable maps gateway status codes to lifecycle states.
// Codes missing from the table map to StatusFailed.
var GatewayStatusTable = map[string]Status{
	GatewayTxnSuccess: StatusCompleted,
	GatewaySuccess:    StatusCompleted,
	GatewayTxnFailure: StatusFailed,
	GatewayFailure:    StatusFailed,
	GatewayFailed:     StatusFailed,
	GatewayPending:    StatusPending,
}

// MapGatewayStatus returns the lifecycle state for a raw gateway status and
// whether the code was recognized.
func MapGatewayStatus(raw string) (Status, bool) {
	s, ok := GatewayStatusTable[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return StatusFailed, false
	}
	return s, true
}
