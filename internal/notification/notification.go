package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindOTP is a login or verification code delivery.
	KindOTP = "otp"
	// KindWelcome is the post-registration message carrying the verification code.
	KindWelcome = "welcome"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// Notifier delivers codes out of band (email or SMS).
type Notifier interface {
	SendOTP(ctx context.Context, message Message) error
	SendWelcome(ctx context.Context, message Message) error
}

// LoggerNotifier is a development implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// SendOTP writes the code to the structured logger.
func (n *LoggerNotifier) SendOTP(_ context.Context, message Message) error {
	n.log(KindOTP, message)
	return nil
}

// SendWelcome writes the welcome message to the structured logger.
func (n *LoggerNotifier) SendWelcome(_ context.Context, message Message) error {
	n.log(KindWelcome, message)
	return nil
}

func (n *LoggerNotifier) log(kind string, message Message) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info("notification",
		slog.String("kind", kind),
		slog.String("destination", message.Destination),
		slog.String("display_name", message.DisplayName),
		slog.String("code", message.Code),
	)
}

type timeoutNotifier struct {
	next    Notifier
	timeout time.Duration
}

// WithTimeout bounds every call on next by d. A call that outlives the
// deadline is abandoned and reported as context.DeadlineExceeded.
func WithTimeout(next Notifier, d time.Duration) Notifier {
	if d <= 0 {
		return next
	}
	return &timeoutNotifier{next: next, timeout: d}
}

func (t *timeoutNotifier) SendOTP(ctx context.Context, message Message) error {
	return t.bounded(ctx, func(ctx context.Context) error { return t.next.SendOTP(ctx, message) })
}

func (t *timeoutNotifier) SendWelcome(ctx context.Context, message Message) error {
	return t.bounded(ctx, func(ctx context.Context) error { return t.next.SendWelcome(ctx, message) })
}

func (t *timeoutNotifier) bounded(ctx context.Context, send func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- send(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
