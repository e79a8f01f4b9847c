package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Integrity records how a callback that touched the record was authenticated.
type Integrity string

const (
	IntegrityNotApplicable Integrity = "not_applicable"
	IntegrityVerified      Integrity = "verified"
	IntegrityUnverified    Integrity = "unverified"
	IntegrityFailed        Integrity = "failed"
)

type Transaction struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod PaymentMethod
	OrderID       string
	PaymentID     string
	Tier          Tier
	Status        Status
	Integrity     Integrity
	GatewayStatus string
	GatewayTxnID  string
	PayerEmail    string
	PayerName     string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// StatusUpdate carries the fields written together with a terminal status.
type StatusUpdate struct {
	Status        Status
	Integrity     Integrity
	GatewayStatus string
	GatewayTxnID  string
	PayerEmail    string
	PayerName     string
	CompletedAt   time.Time
}

// Apply copies u onto tx. Empty payer fields leave the record untouched.
func (u StatusUpdate) Apply(tx *Transaction) {
	tx.Status = u.Status
	if u.Integrity != "" {
		tx.Integrity = u.Integrity
	}
	if u.GatewayStatus != "" {
		tx.GatewayStatus = u.GatewayStatus
	}
	if u.GatewayTxnID != "" {
		tx.GatewayTxnID = u.GatewayTxnID
	}
	if u.PayerEmail != "" {
		tx.PayerEmail = u.PayerEmail
	}
	if u.PayerName != "" {
		tx.PayerName = u.PayerName
	}
	completed := u.CompletedAt
	tx.CompletedAt = &completed
}
