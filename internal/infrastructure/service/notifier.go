// Package service implements infrastructure adapters for the application
// ports: outbound notification delivery and the external schedule source.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/user"
	"github.com/queue-hub/queue-manager/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP NOTIFIER
// Resolves the group roster and hands each member notice to a delivery
// channel. Delivery failures never propagate to the lifecycle transition:
// the phase change is already committed when notification goes out.
// ══════════════════════════════════════════════════════════════════════════════

// DeliveryChannel sends one notification to one recipient.
// Telegram, email and the log channel below all fit this shape.
type DeliveryChannel interface {
	Send(ctx context.Context, recipient user.TelegramID, message string) error
}

// GroupNotifier implements service.Notifier over a membership source and
// a delivery channel.
type GroupNotifier struct {
	membership user.GroupMembership
	channel    DeliveryChannel
	retrier    *retry.Retrier
	logger     *slog.Logger
}

// NewGroupNotifier creates a new GroupNotifier.
func NewGroupNotifier(membership user.GroupMembership, channel DeliveryChannel, logger *slog.Logger) *GroupNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &GroupNotifier{
		membership: membership,
		channel:    channel,
		retrier:    retry.DeliveryRetrier(),
		logger:     logger,
	}
}

// NotifyGroup sends an upcoming-event notice to every member of the group.
// Individual delivery failures are logged and do not stop the fan-out.
func (n *GroupNotifier) NotifyGroup(ctx context.Context, code user.GroupCode, e *event.Event) error {
	members, err := n.membership.MembersOf(ctx, code)
	if err != nil {
		return fmt.Errorf("notifier: resolve members of %s: %w", code, err)
	}

	message := formatNotice(e)

	failed := 0
	for _, member := range members {
		member := member
		err := n.retrier.Do(ctx, func(ctx context.Context) error {
			return n.channel.Send(ctx, member, message)
		})
		if err != nil {
			failed++
			n.logger.Warn("notification delivery failed",
				"recipient", int64(member),
				"event_id", e.ID,
				"error", err,
			)
		}
	}

	n.logger.Info("group notified",
		"group", code.String(),
		"event_id", e.ID,
		"recipients", len(members),
		"failed", failed,
	)

	if failed == len(members) && len(members) > 0 {
		return fmt.Errorf("notifier: all %d deliveries failed for event %s", failed, e.ID)
	}

	return nil
}

func formatNotice(e *event.Event) string {
	return fmt.Sprintf(
		"Открыта запись на событие %s (группа %s). Проведение: %s.",
		e.ID, e.GroupCode, e.OccurredOn.Format(time.RFC3339),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG DELIVERY CHANNEL
// ══════════════════════════════════════════════════════════════════════════════

// LogChannel is a DeliveryChannel that writes notifications to the log.
// Used in development and as a fallback when no bot token is configured.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a new LogChannel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

// Send logs the notification instead of delivering it.
func (c *LogChannel) Send(_ context.Context, recipient user.TelegramID, message string) error {
	c.logger.Info("notification", "recipient", int64(recipient), "message", message)
	return nil
}
