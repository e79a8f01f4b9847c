package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/core"
	"github.com/MohsinAliJafery/backend/internal/metrics"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

const defaultTimeout = 5 * time.Second

type Dependencies struct {
	Providers  *core.ProviderRegistry
	Repository ports.ITransactionRepository
	Pricing    ports.IPricingResolver
	// Signer verifies gateway callbacks. Without it every signed callback
	// is rejected.
	Signer    *checksum.Signer
	Publisher ports.IEventPublisher
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	Timeout   time.Duration
	Clock     func() time.Time
}

type PaymentService struct {
	providers *core.ProviderRegistry
	repo      ports.ITransactionRepository
	pricing   ports.IPricingResolver
	signer    *checksum.Signer
	publisher ports.IEventPublisher
	metrics   *metrics.Recorder
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewPaymentService(deps Dependencies) *PaymentService {
	s := &PaymentService{
		providers: deps.Providers,
		repo:      deps.Repository,
		pricing:   deps.Pricing,
		signer:    deps.Signer,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		timeout:   deps.Timeout,
		now:       deps.Clock,
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// NewOrderID returns ORDER_<unix-ms>_<12 random hex chars>.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("ORDER_%d_%s", now.UnixMilli(), suffix)
}

// Initiate records a pending transaction for the requested tier and asks
// the gateway to prepare it. The record is persisted before the gateway is
// contacted.
func (s *PaymentService) Initiate(ctx context.Context, req model.InitiateRequest) (*model.InitiateResponse, error) {
	if req.UserID == "" {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("user id is required"))
	}
	if !req.Tier.Valid() {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("invalid subscription type"))
	}
	gateway, err := s.providers.Get(req.Method)
	if err != nil {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage(err.Error()))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	amount, currency, err := s.pricing.ResolvePrice(ctx, req.Tier)
	if err != nil {
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("price lookup failed"), apperrors.WithError(err))
	}

	now := s.now()
	tx := &model.Transaction{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Amount:        amount,
		Currency:      currency,
		PaymentMethod: req.Method,
		Tier:          req.Tier,
		Status:        model.StatusPending,
		Integrity:     model.IntegrityNotApplicable,
		CreatedAt:     now,
	}
	tx.OrderID = NewOrderID(now)
	tx.PaymentID = tx.OrderID

	if err := s.repo.Create(ctx, tx); err != nil {
		s.metrics.Initiate(string(req.Method), "store_error")
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("could not record transaction"), apperrors.WithError(err))
	}

	prepared, err := gateway.Initiate(ctx, tx, req.Customer)
	if err != nil {
		s.abandon(ctx, tx, err)
		s.metrics.Initiate(string(req.Method), "gateway_error")
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("payment gateway rejected the order"), apperrors.WithError(err))
	}

	if prepared.PaymentID != "" && prepared.PaymentID != tx.PaymentID {
		if err := s.repo.AttachPaymentID(ctx, tx.OrderID, prepared.PaymentID); err != nil {
			s.metrics.Initiate(string(req.Method), "store_error")
			return nil, apperrors.UpstreamFailure(apperrors.WithMessage("could not record payment id"), apperrors.WithError(err))
		}
		tx.PaymentID = prepared.PaymentID
	}

	s.metrics.Initiate(string(req.Method), "ok")
	s.logger.InfoContext(ctx, "payment initiated",
		slog.String("order_id", tx.OrderID),
		slog.String("payment_id", tx.PaymentID),
		slog.String("user_id", tx.UserID),
		slog.String("method", string(tx.PaymentMethod)),
		slog.String("tier", string(tx.Tier)),
		slog.String("amount", tx.Amount.StringFixed(2)),
		slog.String("currency", tx.Currency),
	)

	return &model.InitiateResponse{
		OrderID:       tx.OrderID,
		TransactionID: tx.ID,
		PaymentID:     tx.PaymentID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Params:        prepared.Params,
	}, nil
}

// abandon fails a pending record whose gateway order could not be created,
// so it is never mistaken for an in-flight payment.
func (s *PaymentService) abandon(ctx context.Context, tx *model.Transaction, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := s.repo.UpdateStatus(ctx, tx.OrderID, model.StatusPending, model.StatusUpdate{
		Status:        model.StatusFailed,
		GatewayStatus: model.GatewayInitiateFailed,
		CompletedAt:   s.now(),
	})
	attrs := []any{
		slog.String("order_id", tx.OrderID),
		slog.String("method", string(tx.PaymentMethod)),
		slog.String("error", cause.Error()),
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway initiation failed; pending record left for expiry sweep",
			append(attrs, slog.String("update_error", err.Error()))...)
		return
	}
	s.logger.WarnContext(ctx, "gateway initiation failed; transaction marked failed", attrs...)
}

func (s *PaymentService) ListUserTransactions(ctx context.Context, userID string) ([]model.TransactionResponse, error) {
	if userID == "" {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("user id is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txs, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to get transactions"), apperrors.WithError(err))
	}

	responses := make([]model.TransactionResponse, 0, len(txs))
	for i := range txs {
		responses = append(responses, model.NewTransactionResponse(&txs[i]))
	}
	return responses, nil
}

// ExpirePending cancels pending transactions created more than olderThan
// ago and returns how many were cancelled.
func (s *PaymentService) ExpirePending(ctx context.Context, olderThan time.Duration) (int, error) {
	const batchSize = 100
	cutoff := s.now().Add(-olderThan)

	expired := 0
	for {
		batch, err := s.repo.FindPendingBefore(ctx, cutoff, batchSize)
		if err != nil {
			return expired, apperrors.UpstreamFailure(apperrors.WithMessage("failed to list pending transactions"), apperrors.WithError(err))
		}

		for _, tx := range batch {
			err := s.repo.UpdateStatus(ctx, tx.OrderID, model.StatusPending, model.StatusUpdate{
				Status:        model.StatusCancelled,
				GatewayStatus: model.GatewayExpired,
				CompletedAt:   s.now(),
			})
			if errors.Is(err, ports.ErrConflict) {
				continue
			}
			if err != nil {
				s.metrics.Expired(expired)
				return expired, apperrors.UpstreamFailure(apperrors.WithMessage("failed to expire transaction"), apperrors.WithError(err))
			}
			expired++
			s.logger.InfoContext(ctx, "pending transaction expired",
				slog.String("order_id", tx.OrderID),
				slog.Time("created_at", tx.CreatedAt),
			)
		}

		if len(batch) < batchSize {
			break
		}
	}

	s.metrics.Expired(expired)
	return expired, nil
}
