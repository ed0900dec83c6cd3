// Package push dispatches notifications to users with no live connection.
// Token issuance and device registration live outside the engine; the
// notifier only needs a way to resolve a user's device tokens.
package push

import (
	"context"
	"fmt"

	"matchchat-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// Notifier delivers a notification to all of a user's devices. Failures are
// logged, never surfaced: durable state is committed before dispatch.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string)
}

// TokenProvider resolves a user's registered device tokens. The device
// registry is an external collaborator.
type TokenProvider func(ctx context.Context, userID string) ([]string, error)

// StaticTokens builds a provider from a fixed user-to-tokens table, as
// loaded from configuration.
func StaticTokens(tokens map[string][]string) TokenProvider {
	return func(ctx context.Context, userID string) ([]string, error) {
		return tokens[userID], nil
	}
}

// Noop discards all notifications. Used when APNs is not configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, userID, title, body string) {}

// APNs sends notifications through Apple Push Notification service.
type APNs struct {
	client  *apns2.Client
	topic   string
	tokens  TokenProvider
	metrics *metrics.Metrics
}

// NewAPNs creates a notifier from a p12 certificate file.
func NewAPNs(certFile, certPass, topic string, production bool, tokens TokenProvider, m *metrics.Metrics) (*APNs, error) {
	cert, err := certificate.FromP12File(certFile, certPass)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}
	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return &APNs{client: client, topic: topic, tokens: tokens, metrics: m}, nil
}

func (a *APNs) countPush(status string) {
	if a.metrics != nil {
		a.metrics.PushesSent.WithLabelValues(status).Inc()
	}
}

// Notify pushes an alert to every device of the user.
func (a *APNs) Notify(ctx context.Context, userID, title, body string) {
	tokens, err := a.tokens(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve device tokens")
		return
	}

	pl := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default")
	for _, token := range tokens {
		n := &apns2.Notification{
			DeviceToken: token,
			Topic:       a.topic,
			Payload:     pl,
		}
		res, err := a.client.PushWithContext(ctx, n)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send push")
			a.countPush("error")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Str("user_id", userID).
				Str("reason", res.Reason).
				Msg("Push rejected")
			a.countPush("rejected")
			continue
		}
		a.countPush("sent")
	}
}
