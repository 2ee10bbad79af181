// Package payment wraps the Razorpay REST API behind a small gateway
// interface so the reservation coordinator never touches HTTP details.
package payment

import (
	"context"
	"net/http"

	"github.com/lotusmind/session-booking-backend/internal/pkg/apperror"
)

var (
	ErrGatewayUnavailable   = apperror.New(http.StatusBadGateway, "payment gateway request failed")
	ErrOrderRejected        = apperror.New(http.StatusBadGateway, "payment gateway rejected the order")
	ErrInvalidSignature     = apperror.New(http.StatusBadRequest, "payment signature verification failed")
	ErrSubscriptionNotFound = apperror.New(http.StatusNotFound, "subscription not found")
)

// OrderRequest describes the order to open with the gateway. Amount is in
// minor currency units (paise for INR).
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the gateway's view of an opened order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type Gateway interface {
	// CreateOrder opens a payment order and returns the gateway order id
	// the client-side checkout needs.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// VerifySignature checks the checkout callback signature: an
	// HMAC-SHA256 of "orderID|paymentID" keyed with the API secret.
	VerifySignature(orderID, paymentID, signature string) error

	// FetchSubscription returns the gateway-side status of a recurring
	// billing subscription, used by the renewal batch job.
	FetchSubscription(ctx context.Context, subscriptionID string) (string, error)
}
