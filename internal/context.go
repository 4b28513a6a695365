package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextOrderIDKey ctxKey = "orderID"

// OrderIDFromContext returns the order id an order access token was issued
// for, or empty when the request carried no verified token.
func OrderIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if orderID, ok := ctx.Value(ContextOrderIDKey).(string); ok {
		return orderID
	}
	return ""
}

func ContextWithOrderID(ctx context.Context, orderID string) context.Context {
	return context.WithValue(ctx, ContextOrderIDKey, orderID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
