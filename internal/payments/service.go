// Package payments simulates entry-fee payment. No money moves; a successful call marks the
// participant PAID and makes every meal session eligible.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
	"github.com/nexothsav/hackportal/pkg/queue"
)

// ErrUserNotFound is returned when paying for an unknown user.
var ErrUserNotFound = errors.New("user not found")

// MsgAlreadyPaid is returned for a repeated payment.
const MsgAlreadyPaid = "Already paid"

// ReceiptQueue accepts receipt email jobs.
type ReceiptQueue interface {
	EnqueuePaymentReceipt(ctx context.Context, payload queue.PaymentReceiptPayload) error
}

// Result is the outcome of a payment attempt.
type Result struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	Status   models.PaymentStatus `json:"payment_status"`
	Amount   int                  `json:"amount"`
	Currency string               `json:"currency"`
	QRData   string               `json:"participant_qr_data,omitempty"`
}

// Service processes payments.
type Service struct {
	users    store.Users
	fee      int
	currency string
	receipts ReceiptQueue
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a payment service. receipts may be nil when no job queue is configured.
func NewService(users store.Users, fee int, currency string, receipts ReceiptQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, fee: fee, currency: currency, receipts: receipts, now: time.Now, logger: logger}
}

// ProcessPayment marks the user PAID. Paying twice succeeds with MsgAlreadyPaid and changes nothing.
// Consumed meal sessions stay consumed.
func (s *Service) ProcessPayment(ctx context.Context, userID string) (Result, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, ErrUserNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("get user %s: %w", userID, err)
	}

	at := s.now()
	applied, err := s.users.MarkPaid(ctx, userID, at)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, ErrUserNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("mark %s paid: %w", userID, err)
	}
	if !applied {
		return Result{Success: true, Message: MsgAlreadyPaid, Status: models.PaymentPaid, Currency: s.currency, QRData: userID}, nil
	}

	s.logger.Info("payment processed", zap.String("user_id", userID), zap.Int("amount", s.fee), zap.String("currency", s.currency))
	if s.receipts != nil {
		payload := queue.PaymentReceiptPayload{
			UserID:         userID,
			RecipientEmail: user.Email,
			RecipientName:  user.Name,
			Amount:         s.fee,
			Currency:       s.currency,
			PaidAt:         at,
		}
		if err := s.receipts.EnqueuePaymentReceipt(ctx, payload); err != nil {
			s.logger.Warn("enqueue payment receipt", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return Result{
		Success:  true,
		Message:  fmt.Sprintf("Payment of %s%d successful!", currencySymbol(s.currency), s.fee),
		Status:   models.PaymentPaid,
		Amount:   s.fee,
		Currency: s.currency,
		QRData:   userID,
	}, nil
}

// GetPaymentStatus returns the user's payment status, PENDING for unknown users.
func (s *Service) GetPaymentStatus(ctx context.Context, userID string) (models.PaymentStatus, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.PaymentPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", userID, err)
	}
	return user.PaymentStatus, nil
}

func currencySymbol(code string) string {
	switch code {
	case "INR":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "":
		return ""
	}
	return code + " "
}
