package notifyobs

import (
	"context"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
	"market-watch-bot/internal/trace"
	"market-watch-bot/internal/types"
)

// observableNotifier wraps a Notifier with tracing, logging and delivery metrics
type observableNotifier struct {
	notifier interfaces.Notifier
	metrics  interfaces.Metrics
}

var _ interfaces.Notifier = (*observableNotifier)(nil)

// Wrap wraps a notifier with observability middleware
func Wrap(n interfaces.Notifier, m interfaces.Metrics) interfaces.Notifier {
	if m == nil {
		m = interfaces.NopMetrics{}
	}
	return &observableNotifier{notifier: n, metrics: m}
}

func (o *observableNotifier) Send(ctx context.Context, channel interfaces.Channel, text string) error {
	ctx, span := trace.StartSpan(ctx, "notify.Send")
	defer span.End()

	err := o.notifier.Send(ctx, channel, text)
	o.metrics.NotificationSent("send", err)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Notification failed", err, "channel", channel, "length", len(text))
		return err
	}
	logger.DebugSkip(ctx, 1, "Notification sent", "channel", channel, "length", len(text))
	return nil
}

func (o *observableNotifier) SendPhoto(ctx context.Context, channel interfaces.Channel, photo types.Photo) error {
	ctx, span := trace.StartSpan(ctx, "notify.SendPhoto")
	defer span.End()

	err := o.notifier.SendPhoto(ctx, channel, photo)
	o.metrics.NotificationSent("send_photo", err)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Photo notification failed", err, "channel", channel)
		return err
	}
	logger.DebugSkip(ctx, 1, "Photo sent", "channel", channel, "by_url", photo.URL != "")
	return nil
}
