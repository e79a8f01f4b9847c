package core

import (
	"fmt"

	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

type ProviderRegistry struct {
	gateways map[model.PaymentMethod]ports.IPaymentGateway
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		gateways: make(map[model.PaymentMethod]ports.IPaymentGateway),
	}
}

func (r *ProviderRegistry) Register(gateway ports.IPaymentGateway) {
	r.gateways[gateway.Name()] = gateway
}

func (r *ProviderRegistry) Get(method model.PaymentMethod) (ports.IPaymentGateway, error) {
	if g, exists := r.gateways[method]; exists {
		return g, nil
	}
	return nil, fmt.Errorf("payment method %s not configured", method)
}

// Capturer returns the gateway for method if it supports synchronous capture.
func (r *ProviderRegistry) Capturer(method model.PaymentMethod) (ports.IOrderCapturer, error) {
	g, err := r.Get(method)
	if err != nil {
		return nil, err
	}
	c, ok := g.(ports.IOrderCapturer)
	if !ok {
		return nil, fmt.Errorf("payment method %s does not support capture", method)
	}
	return c, nil
}
