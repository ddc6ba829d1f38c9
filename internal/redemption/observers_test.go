package redemption

import (
	"context"
	"errors"
	"testing"

	"github.com/nexothsav/hackportal/internal/entitlement"
	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/pkg/queue"
)

type recordingPublisher struct {
	events []FeedEvent
}

func (r *recordingPublisher) Publish(topic, event string, payload interface{}) {
	if topic == "scanner" && event == "meal_redemption" {
		r.events = append(r.events, payload.(FeedEvent))
	}
}

type recordingQueue struct {
	jobs []queue.RedemptionNoticePayload
	err  error
}

func (r *recordingQueue) EnqueueRedemptionNotice(_ context.Context, p queue.RedemptionNoticePayload) error {
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, p)
	return nil
}

func TestObservers(t *testing.T) {
	ms := newPaidStore(t, "u1")
	pub := &recordingPublisher{}
	q := &recordingQueue{}
	c := NewCoordinator(entitlement.NewEngine(ms, nil), NewInFlight(), nil)
	c.AddResultHandler(BroadcastResults(pub, "scanner", "meal_redemption"))
	c.AddResultHandler(EmailApprovals(ms, q, nil))
	ctx := context.Background()

	_, _ = c.Redeem(ctx, "u1", models.MealBreakfast)
	_, _ = c.Redeem(ctx, "u1", models.MealBreakfast)
	_, _ = c.Redeem(ctx, "ghost", models.MealBreakfast)

	if len(pub.events) != 3 {
		t.Fatalf("Expected every result on the feed, got %d", len(pub.events))
	}
	if pub.events[0].ParticipantID != "u1" || pub.events[0].Result.Outcome != entitlement.OutcomeApproved {
		t.Errorf("Unexpected first event %+v", pub.events[0])
	}
	if pub.events[2].Result.Outcome != entitlement.OutcomeUserNotFound {
		t.Errorf("Expected not-found on the feed, got %+v", pub.events[2])
	}

	if len(q.jobs) != 1 {
		t.Fatalf("Expected one notice for the single approval, got %d", len(q.jobs))
	}
	if q.jobs[0].RecipientEmail != "u1@hack.com" || q.jobs[0].MealType != "BREAKFAST" || q.jobs[0].ConsumedAt.IsZero() {
		t.Errorf("Unexpected notice %+v", q.jobs[0])
	}
}

func TestEmailApprovals_QueueFailureIsSwallowed(t *testing.T) {
	ms := newPaidStore(t, "u1")
	c := NewCoordinator(entitlement.NewEngine(ms, nil), NewInFlight(), nil)
	c.AddResultHandler(EmailApprovals(ms, &recordingQueue{err: errors.New("redis down")}, nil))

	res, err := c.Redeem(context.Background(), "u1", models.MealLunch)
	if err != nil || !res.Success {
		t.Errorf("Expected approval despite queue failure, got %+v, %v", res, err)
	}
}
