package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
	"github.com/MohsinAliJafery/backend/internal/service"
	"github.com/MohsinAliJafery/backend/pkg/utils"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserPhone = "X-User-Phone"

	maxBodyBytes = 64 << 10
)

type customerKey struct{}

type PaymentController struct {
	service     *service.PaymentService
	identity    ports.IIdentityVerifier
	frontendURL string
	logger      *slog.Logger
}

func NewPaymentController(service *service.PaymentService, identity ports.IIdentityVerifier, frontendURL string, logger *slog.Logger) *PaymentController {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentController{service: service, identity: identity, frontendURL: frontendURL, logger: logger}
}

// Routes mounts the payment endpoints on r.
func (c *PaymentController) Routes(r chi.Router) {
	r.Get("/payments/health", c.GetHealthCheck)

	r.Route("/api/payments", func(r chi.Router) {
		r.Get("/paytm/callback", c.PaytmCallback)
		r.Post("/paytm/callback", c.PaytmCallback)

		r.Group(func(r chi.Router) {
			r.Use(c.RequireIdentity)
			r.Post("/paytm/initiate", c.initiate(model.MethodPaytm))
			r.Post("/paypal/create-order", c.initiate(model.MethodPaypal))
			r.Post("/paypal/capture-order", c.CapturePaypalOrder)
			r.Get("/transactions", c.GetTransactions)
		})
	})
}

// RequireIdentity resolves the caller from the forwarded identity headers.
func (c *PaymentController) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customer, err := c.identity.Verify(r.Context(), utils.GetHeader(r.Header, HeaderUserID))
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if customer.Email == "" {
			customer.Email = utils.GetHeader(r.Header, HeaderUserEmail)
		}
		if customer.Phone == "" {
			customer.Phone = utils.GetHeader(r.Header, HeaderUserPhone)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), customerKey{}, *customer)))
	})
}

func customerFrom(ctx context.Context) model.Customer {
	c, _ := ctx.Value(customerKey{}).(model.Customer)
	return c
}

type initiateRequest struct {
	SubscriptionType model.Tier `json:"subscriptionType"`
}

func (c *PaymentController) initiate(method model.PaymentMethod) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request")
			return
		}

		response, err := c.service.Initiate(r.Context(), model.InitiateRequest{
			Customer: customerFrom(r.Context()),
			Tier:     req.SubscriptionType,
			Method:   method,
		})
		if err != nil {
			c.respondError(r, w, err)
			return
		}

		utils.RespondWithJSON(w, http.StatusOK, response)
	}
}

type captureRequest struct {
	OrderID string `json:"orderID"`
}

func (c *PaymentController) CapturePaypalOrder(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	result, err := c.service.CapturePaypalOrder(r.Context(), customerFrom(r.Context()).UserID, req.OrderID)
	if err != nil {
		c.respondError(r, w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

func (c *PaymentController) GetTransactions(w http.ResponseWriter, r *http.Request) {
	response, err := c.service.ListUserTransactions(r.Context(), customerFrom(r.Context()).UserID)
	if err != nil {
		c.respondError(r, w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// PaytmCallback reconciles the gateway's post-payment redirect. The browser
// is sent back to the frontend; the outcome page never carries failure
// detail.
func (c *PaymentController) PaytmCallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		c.finishCallback(w, r, nil, apperrors.InvalidRequest(apperrors.WithError(err)))
		return
	}

	params := make(checksum.Params, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	result, err := c.service.Reconcile(r.Context(), params)
	c.finishCallback(w, r, result, err)
}

func (c *PaymentController) finishCallback(w http.ResponseWriter, r *http.Request, result *model.ReconcileResult, err error) {
	if err != nil {
		c.logger.WarnContext(r.Context(), "callback not applied",
			slog.String("kind", string(apperrors.KindOf(err))),
			slog.String("error", err.Error()),
		)
	}

	if utils.AcceptsJSON(r.Header) {
		if apperrors.Is(err, apperrors.KindUpstreamFailure) {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	page := "/payment-failed"
	if err == nil && result != nil {
		switch result.Status {
		case model.StatusCompleted:
			page = "/payment-success"
		case model.StatusPending:
			page = "/payment-pending"
		}
	}
	http.Redirect(w, r, c.frontendURL+page, http.StatusFound)
}

func (c *PaymentController) GetHealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (c *PaymentController) respondError(r *http.Request, w http.ResponseWriter, err error) {
	if kind := apperrors.KindOf(err); kind == apperrors.KindUpstreamFailure || kind == apperrors.KindUnexpected {
		c.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	utils.RespondWithException(w, err)
}
