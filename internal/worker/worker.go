// Package worker drains the email job queue.
package worker

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/pkg/email"
	"github.com/nexothsav/hackportal/pkg/queue"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// JobSource is the queue as seen by the processor.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EmailProcessor renders queued email jobs and hands them to a sender.
type EmailProcessor struct {
	jobs    JobSource
	sender  email.Sender
	backoff time.Duration
	logger  *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(jobs JobSource, sender email.Sender, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{jobs: jobs, sender: sender, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	req, err := render(job)
	if err != nil {
		return err
	}
	res, err := p.sender.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s: %w", job.Type, err)
	}
	p.logger.Info("email job done", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("message_id", res.MessageID))
	return nil
}

func render(job *queue.Job) (email.SendRequest, error) {
	switch job.Type {
	case queue.JobTypePaymentReceipt:
		var p queue.PaymentReceiptPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return email.SendRequest{}, fmt.Errorf("unmarshal payload: %w", err)
		}
		body, err := execute("payment_receipt.html", map[string]string{
			"Name":   displayName(p.RecipientName, p.RecipientEmail),
			"Amount": fmt.Sprintf("%d %s", p.Amount, p.Currency),
			"Date":   p.PaidAt.Format("2 Jan 2006"),
		})
		if err != nil {
			return email.SendRequest{}, err
		}
		return email.SendRequest{To: []string{p.RecipientEmail}, Subject: "Payment received", HTML: body}, nil

	case queue.JobTypeRedemptionNotice:
		var p queue.RedemptionNoticePayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return email.SendRequest{}, fmt.Errorf("unmarshal payload: %w", err)
		}
		meal := strings.ToLower(p.MealType)
		body, err := execute("redemption_notice.html", map[string]string{
			"Name": displayName(p.RecipientName, p.RecipientEmail),
			"Meal": meal,
			"Time": p.ConsumedAt.Format("15:04"),
		})
		if err != nil {
			return email.SendRequest{}, err
		}
		return email.SendRequest{To: []string{p.RecipientEmail}, Subject: "Your " + meal + " was collected", HTML: body}, nil
	}
	return email.SendRequest{}, fmt.Errorf("unknown job type: %s", job.Type)
}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func displayName(name, addr string) string {
	if name != "" {
		return name
	}
	return addr
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
