// Package dispatch delivers due reminders by SMS and web push and records
// them as sent.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/checkin/internal/model"
)

const (
	DefaultInterval = time.Minute
	batchSize       = 100
)

// ErrNoProvider is returned by senders that cannot deliver anything.
var ErrNoProvider = errors.New("sms provider not configured")

// Sender delivers a text message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Pusher notifies a user's subscribed browsers and returns how many
// accepted the notification.
type Pusher interface {
	Notify(ctx context.Context, userID, reminderID, text string) (int, error)
}

// DueLister returns unsent reminders due at or before now. withPush widens
// the selection to reminders only deliverable by push.
type DueLister interface {
	ListDue(now time.Time, limit int, withPush bool) ([]model.DueReminder, error)
}

// Marker records a reminder as delivered.
type Marker interface {
	MarkSent(id string) error
}

// Scheduler periodically sends due reminders.
type Scheduler struct {
	mu       sync.RWMutex
	due      DueLister
	marker   Marker
	sender   Sender
	pusher   Pusher
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(due DueLister, marker Marker, sender Sender, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		due:      due,
		marker:   marker,
		sender:   sender,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPush adds web push as a delivery channel.
func (s *Scheduler) WithPush(p Pusher) *Scheduler {
	s.pusher = p
	return s
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick sends every reminder that is due now and returns how many were
// delivered. A reminder counts as delivered when any channel accepted it.
// One that no channel accepted stays unsent for the next tick.
func (s *Scheduler) Tick(ctx context.Context) int {
	reminders, err := s.due.ListDue(s.now(), batchSize, s.pusher != nil)
	if err != nil {
		s.logger.Error("list due reminders", "error", err)
		return 0
	}

	sent := 0
	for _, r := range reminders {
		if ctx.Err() != nil {
			break
		}
		if !s.deliver(ctx, r) {
			continue
		}
		if err := s.marker.MarkSent(r.ID); err != nil {
			s.logger.Error("mark reminder sent", "reminder_id", r.ID, "error", err)
			continue
		}
		sent++
		s.logger.Info("reminder sent", "reminder_id", r.ID)
	}
	return sent
}

func (s *Scheduler) deliver(ctx context.Context, r model.DueReminder) bool {
	delivered := false
	if r.SenderPhone != "" {
		err := s.sender.Send(ctx, r.SenderPhone, r.ReminderText)
		switch {
		case errors.Is(err, ErrNoProvider):
			s.logger.Debug("sms skipped", "reminder_id", r.ID)
		case err != nil:
			s.logger.Warn("send reminder sms", "reminder_id", r.ID, "error", err)
		default:
			delivered = true
		}
	}
	if s.pusher != nil && r.OwnerID != "" {
		n, err := s.pusher.Notify(ctx, r.OwnerID, r.ID, r.ReminderText)
		if err != nil {
			s.logger.Warn("send reminder push", "reminder_id", r.ID, "error", err)
		}
		if n > 0 {
			delivered = true
		}
	}
	return delivered
}

// LogSender stands in when no SMS provider is configured. It logs the
// message and reports ErrNoProvider so the reminder stays unsent.
type LogSender struct {
	Logger *slog.Logger
}

func (l LogSender) Send(_ context.Context, to, body string) error {
	l.Logger.Info("sms not sent, provider not configured", "to", to, "body", body)
	return ErrNoProvider
}
