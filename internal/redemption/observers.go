package redemption

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/pkg/queue"
)

// FeedEvent is what staff dashboards receive for every redemption attempt.
type FeedEvent struct {
	ParticipantID string             `json:"participant_id"`
	Result        entitlement.Result `json:"result"`
	At            time.Time          `json:"at"`
}

// EventPublisher broadcasts an event on a topic.
type EventPublisher interface {
	Publish(topic, event string, payload interface{})
}

// BroadcastResults returns a handler that publishes every result as event on topic.
func BroadcastResults(pub EventPublisher, topic, event string) ResultHandler {
	return func(_ context.Context, participantID string, res entitlement.Result) {
		pub.Publish(topic, event, FeedEvent{ParticipantID: participantID, Result: res, At: time.Now()})
	}
}

// UserLookup reads a user.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// NoticeQueue accepts redemption notice email jobs.
type NoticeQueue interface {
	EnqueueRedemptionNotice(ctx context.Context, payload queue.RedemptionNoticePayload) error
}

// EmailApprovals returns a handler that queues a notice email for every approved redemption.
// Failures are logged; they never affect the redemption.
func EmailApprovals(users UserLookup, q NoticeQueue, logger *zap.Logger) ResultHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, participantID string, res entitlement.Result) {
		if !res.Success {
			return
		}
		u, err := users.GetUser(ctx, participantID)
		if err != nil {
			logger.Warn("redemption notice: load user", zap.String("participant_id", participantID), zap.Error(err))
			return
		}
		payload := queue.RedemptionNoticePayload{
			UserID:         u.ID,
			RecipientEmail: u.Email,
			RecipientName:  u.Name,
			MealType:       string(res.MealType),
		}
		if res.ConsumedAt != nil {
			payload.ConsumedAt = *res.ConsumedAt
		}
		if err := q.EnqueueRedemptionNotice(ctx, payload); err != nil {
			logger.Warn("redemption notice: enqueue", zap.String("participant_id", participantID), zap.Error(err))
		}
	}
}
