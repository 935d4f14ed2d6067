// Package push delivers web push notifications for due reminders.
package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/checkin/internal/model"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

const defaultSubject = "mailto:reminders@checkin.local"

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
}

type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	return &Service{cfg: cfg}
}

// Configured reports whether both VAPID keys are set.
func (s *Service) Configured() bool {
	return s != nil && s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// VAPIDPublicKey returns the key browsers need to subscribe.
func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// Send delivers payload to one subscription.
func (s *Service) Send(ctx context.Context, sub model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		Subscriber:      s.cfg.Subject,
		TTL:             86400,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a new P-256 key pair encoded the way browsers
// and the push services expect: the uncompressed public point and the raw
// private scalar, both unpadded base64url.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate P-256 key: %w", err)
	}
	publicKey = base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	privateKey = base64.RawURLEncoding.EncodeToString(key.Bytes())
	return publicKey, privateKey, nil
}

// SubscriptionStore is the part of the push store the notifier needs.
type SubscriptionStore interface {
	ListByUser(userID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier sends reminder notifications to every browser a user subscribed.
type Notifier struct {
	service *Service
	subs    SubscriptionStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs SubscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

// Notify pushes a reminder to userID's subscriptions and returns how many
// accepted it. Subscriptions the push service reports as gone are removed.
func (n *Notifier) Notify(ctx context.Context, userID, reminderID, text string) (int, error) {
	subs, err := n.subs.ListByUser(userID)
	if err != nil {
		return 0, err
	}

	payload := Payload{
		Title: "Check-in reminder",
		Body:  text,
		URL:   "/reminders",
		Tag:   "reminder-" + reminderID,
	}

	delivered := 0
	for _, sub := range subs {
		err := n.service.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			n.logger.Info("removing expired push subscription", "subscription_id", sub.ID)
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired push subscription", "error", err)
			}
		default:
			n.logger.Warn("push send failed", "subscription_id", sub.ID, "error", err)
		}
	}
	return delivered, nil
}
