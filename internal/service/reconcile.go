package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

// Callback parameter names sent by the gateway.
const (
	ParamOrderID   = "ORDERID"
	ParamStatus    = "STATUS"
	ParamTxnAmount = "TXNAMOUNT"
	ParamBankTxnID = "BANKTXNID"
	ParamTxnID     = "TXNID"
	ParamEmail     = "EMAIL"
	ParamCustID    = "CUST_ID"
	ParamRespCode  = "RESPCODE"
)

// Reconcile outcomes reported to metrics.
const (
	outcomeInvalid   = "invalid"
	outcomeIntegrity = "integrity_failure"
	outcomeNotFound  = "not_found"
	outcomeDuplicate = "duplicate"
	outcomePending   = "pending"
	outcomeError     = "error"
)

func param(p checksum.Params, name string) string {
	if v, ok := p[name]; ok {
		return strings.TrimSpace(v)
	}
	match, found := "", false
	for k := range p {
		if strings.EqualFold(k, name) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return ""
	}
	return strings.TrimSpace(p[match])
}

func sigPrefix(sig string) string {
	if len(sig) > 12 {
		return sig[:12] + "..."
	}
	return sig
}

// Reconcile applies a gateway callback to its pending transaction.
//
// Signed callbacks must verify. Unsigned callbacks are only honored when
// they report a failure, and the record is marked unverified. Only PayTM
// transactions accept callbacks. Terminal transactions are returned
// unchanged so replays are harmless.
func (s *PaymentService) Reconcile(ctx context.Context, params checksum.Params) (*model.ReconcileResult, error) {
	orderID := param(params, ParamOrderID)
	if orderID == "" {
		s.metrics.Reconcile(outcomeInvalid)
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("callback is missing " + ParamOrderID))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rawStatus := param(params, ParamStatus)
	target, recognized := model.MapGatewayStatus(rawStatus)

	if checksum.SignatureFields(params) > 1 {
		return s.rejectCallback(ctx, orderID, rawStatus, "duplicate checksum fields")
	}

	integrity := model.IntegrityUnverified
	if sig, signed := checksum.SignatureOf(params); signed {
		if s.signer == nil || !s.signer.Verify(params, sig) {
			return s.rejectCallback(ctx, orderID, rawStatus, "checksum mismatch", slog.String("checksum", sigPrefix(sig)))
		}
		integrity = model.IntegrityVerified
	} else if target == model.StatusCompleted {
		return s.rejectCallback(ctx, orderID, rawStatus, "unsigned success callback")
	}

	tx, err := s.repo.FindByOrderID(ctx, orderID)
	if errors.Is(err, ports.ErrNotFound) {
		s.metrics.Reconcile(outcomeNotFound)
		s.logger.WarnContext(ctx, "callback for unknown order",
			slog.String("order_id", orderID),
			slog.String("gateway_status", rawStatus),
		)
		return nil, apperrors.NotFound()
	}
	if err != nil {
		s.metrics.Reconcile(outcomeError)
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to load transaction"), apperrors.WithError(err))
	}

	if tx.PaymentMethod != model.MethodPaytm {
		return s.rejectCallback(ctx, orderID, rawStatus, "callback for "+string(tx.PaymentMethod)+" transaction")
	}

	result := &model.ReconcileResult{OrderID: orderID, Status: tx.Status, Integrity: integrity}

	if tx.Status.Terminal() {
		s.metrics.Reconcile(outcomeDuplicate)
		s.logger.InfoContext(ctx, "callback for settled transaction ignored",
			slog.String("order_id", orderID),
			slog.String("status", string(tx.Status)),
			slog.String("gateway_status", rawStatus),
		)
		return result, nil
	}

	if target == model.StatusPending {
		s.metrics.Reconcile(outcomePending)
		return result, nil
	}

	if !recognized {
		s.logger.WarnContext(ctx, "unrecognized gateway status treated as failure",
			slog.String("order_id", orderID),
			slog.String("gateway_status", rawStatus),
			slog.String("resp_code", param(params, ParamRespCode)),
		)
	}
	if amount := param(params, ParamTxnAmount); target == model.StatusCompleted && amount != "" && amount != tx.Amount.StringFixed(2) {
		s.logger.WarnContext(ctx, "callback amount differs from requested amount",
			slog.String("order_id", orderID),
			slog.String("requested", tx.Amount.StringFixed(2)),
			slog.String("reported", amount),
		)
	}

	update := model.StatusUpdate{
		Status:        target,
		Integrity:     integrity,
		GatewayStatus: rawStatus,
		GatewayTxnID:  param(params, ParamBankTxnID),
		CompletedAt:   s.now(),
	}
	if update.GatewayStatus == "" {
		update.GatewayStatus = "UNKNOWN"
	}
	if update.GatewayTxnID == "" {
		update.GatewayTxnID = param(params, ParamTxnID)
	}
	if target == model.StatusCompleted {
		update.PayerEmail = param(params, ParamEmail)
		update.PayerName = param(params, ParamCustID)
	}

	applied, current, err := s.transition(ctx, tx, update)
	if err != nil {
		s.metrics.Reconcile(outcomeError)
		return nil, err
	}
	result.Status = current.Status
	result.Applied = applied
	if !applied {
		s.metrics.Reconcile(outcomeDuplicate)
		return result, nil
	}

	s.metrics.Reconcile(string(current.Status))
	s.logger.InfoContext(ctx, "transaction reconciled",
		slog.String("order_id", orderID),
		slog.String("status", string(current.Status)),
		slog.String("integrity", string(integrity)),
		slog.String("gateway_status", rawStatus),
	)
	return result, nil
}

func (s *PaymentService) rejectCallback(ctx context.Context, orderID, rawStatus, reason string, attrs ...slog.Attr) (*model.ReconcileResult, error) {
	s.metrics.Reconcile(outcomeIntegrity)

	result := &model.ReconcileResult{OrderID: orderID, Integrity: model.IntegrityFailed}
	logAttrs := []any{
		slog.String("order_id", orderID),
		slog.String("reason", reason),
		slog.String("gateway_status", rawStatus),
	}
	for _, a := range attrs {
		logAttrs = append(logAttrs, a)
	}

	tx, err := s.repo.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		result.Status = tx.Status
		logAttrs = append(logAttrs, slog.String("status", string(tx.Status)), slog.String("user_id", tx.UserID))
	case errors.Is(err, ports.ErrNotFound):
		logAttrs = append(logAttrs, slog.Bool("known_order", false))
	default:
		logAttrs = append(logAttrs, slog.String("lookup_error", err.Error()))
	}

	s.logger.ErrorContext(ctx, "callback integrity failure", logAttrs...)
	return result, apperrors.IntegrityFailure(apperrors.WithMessage(reason))
}

// transition moves tx out of pending. When another writer won the race it
// reports applied=false together with the stored record.
func (s *PaymentService) transition(ctx context.Context, tx *model.Transaction, update model.StatusUpdate) (bool, *model.Transaction, error) {
	err := s.repo.UpdateStatus(ctx, tx.OrderID, model.StatusPending, update)
	if errors.Is(err, ports.ErrConflict) {
		current, ferr := s.repo.FindByOrderID(ctx, tx.OrderID)
		if ferr != nil {
			return false, nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to reload transaction"), apperrors.WithError(ferr))
		}
		return false, current, nil
	}
	if err != nil {
		return false, nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to update transaction"), apperrors.WithError(err))
	}

	updated := *tx
	update.Apply(&updated)
	if updated.Status == model.StatusCompleted {
		s.publishCompleted(ctx, &updated)
	}
	return true, &updated, nil
}

// publishCompleted emits the subscription extension for the stored owner of
// the transaction. Failures are logged; the transition is already durable.
func (s *PaymentService) publishCompleted(ctx context.Context, tx *model.Transaction) {
	if s.publisher == nil {
		return
	}
	event := model.SubscriptionEvent{
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		UserID:        tx.UserID,
		Tier:          tx.Tier,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
	}
	if tx.CompletedAt != nil {
		event.CompletedAt = *tx.CompletedAt
	}
	if err := s.publisher.PublishSubscriptionExtended(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "subscription event not published",
			slog.String("order_id", tx.OrderID),
			slog.String("user_id", tx.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// Capture completes a pending transaction from a synchronous SDK capture.
// The SDK session authenticates the result, so no checksum is involved.
func (s *PaymentService) Capture(ctx context.Context, capture model.CaptureResult) (*model.ReconcileResult, error) {
	if capture.PaymentID == "" {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("payment id is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.repo.FindByPaymentID(ctx, capture.PaymentID)
	if errors.Is(err, ports.ErrNotFound) {
		s.metrics.Capture(outcomeNotFound)
		return nil, apperrors.NotFound()
	}
	if err != nil {
		s.metrics.Capture(outcomeError)
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to load transaction"), apperrors.WithError(err))
	}

	result, err := s.settledCapture(tx)
	if result != nil || err != nil {
		return result, err
	}

	if !strings.EqualFold(capture.Status, model.CaptureStatusCompleted) {
		s.metrics.Capture(outcomeError)
		s.logger.WarnContext(ctx, "capture not completed by gateway",
			slog.String("order_id", tx.OrderID),
			slog.String("capture_status", capture.Status),
		)
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("capture status " + capture.Status))
	}

	applied, current, err := s.transition(ctx, tx, model.StatusUpdate{
		Status:        model.StatusCompleted,
		GatewayStatus: strings.ToUpper(capture.Status),
		PayerEmail:    capture.PayerEmail,
		PayerName:     capture.PayerName,
		CompletedAt:   s.now(),
	})
	if err != nil {
		s.metrics.Capture(outcomeError)
		return nil, err
	}
	if !applied {
		return s.settledCapture(current)
	}

	s.metrics.Capture(string(model.StatusCompleted))
	s.logger.InfoContext(ctx, "transaction captured",
		slog.String("order_id", current.OrderID),
		slog.String("payment_id", current.PaymentID),
	)
	return &model.ReconcileResult{
		OrderID:   current.OrderID,
		Status:    current.Status,
		Integrity: current.Integrity,
		Applied:   true,
	}, nil
}

// settledCapture handles captures against non-pending records: completed is
// idempotent, any other terminal state is a conflict. It returns nil, nil
// for pending records.
func (s *PaymentService) settledCapture(tx *model.Transaction) (*model.ReconcileResult, error) {
	switch tx.Status {
	case model.StatusPending:
		return nil, nil
	case model.StatusCompleted:
		s.metrics.Capture(outcomeDuplicate)
		return &model.ReconcileResult{OrderID: tx.OrderID, Status: tx.Status, Integrity: tx.Integrity}, nil
	default:
		s.metrics.Capture("conflict")
		return nil, apperrors.Conflict(apperrors.WithMessage("transaction is " + string(tx.Status)))
	}
}

// CapturePaypalOrder captures an order through the gateway SDK on behalf of
// its owner and records the result.
func (s *PaymentService) CapturePaypalOrder(ctx context.Context, userID, paymentID string) (*model.ReconcileResult, error) {
	if paymentID == "" {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage("orderID is required"))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	tx, err := s.repo.FindByPaymentID(lookupCtx, paymentID)
	cancel()
	if errors.Is(err, ports.ErrNotFound) || (err == nil && tx.UserID != userID) {
		return nil, apperrors.NotFound()
	}
	if err != nil {
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("failed to load transaction"), apperrors.WithError(err))
	}

	if result, err := s.settledCapture(tx); result != nil || err != nil {
		return result, err
	}

	capturer, err := s.providers.Capturer(tx.PaymentMethod)
	if err != nil {
		return nil, apperrors.InvalidRequest(apperrors.WithMessage(err.Error()))
	}

	captureCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := capturer.CaptureOrder(captureCtx, paymentID)
	if err != nil {
		s.metrics.Capture(outcomeError)
		return nil, apperrors.UpstreamFailure(apperrors.WithMessage("payment capture failed"), apperrors.WithError(err))
	}
	if res.PaymentID == "" {
		res.PaymentID = paymentID
	}
	return s.Capture(ctx, *res)
}
