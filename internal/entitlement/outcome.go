package entitlement

import (
	"time"

	"github.com/nexothsav/hackportal/internal/models"
)

// Outcome classifies a redemption attempt.
type Outcome string

const (
	OutcomeApproved        Outcome = "APPROVED"
	OutcomeUserNotFound    Outcome = "USER_NOT_FOUND"
	OutcomePaymentRequired Outcome = "PAYMENT_REQUIRED"
	OutcomeNotEligible     Outcome = "NOT_ELIGIBLE"
	OutcomeAlreadyConsumed Outcome = "ALREADY_CONSUMED"
	// OutcomeBusy means another attempt for the same pair is in flight. Callers retry; it is not a denial.
	OutcomeBusy Outcome = "BUSY"
)

// Operator-facing messages. Scanner screens show them verbatim.
const (
	MsgApproved        = "APPROVED - Enjoy your meal!"
	MsgUserNotFound    = "User not found"
	MsgPaymentRequired = "NOT ELIGIBLE - Payment required"
	MsgNotEligible     = "NOT ELIGIBLE - Meal not included"
	MsgAlreadyConsumed = "ALREADY EATEN - Meal already redeemed"
	MsgBusy            = "Operation in progress, please wait"
)

// Result is the structured answer to a redemption attempt.
type Result struct {
	Success    bool            `json:"success"`
	Outcome    Outcome         `json:"outcome"`
	Message    string          `json:"message"`
	MealType   models.MealType `json:"meal_type,omitempty"`
	UserName   string          `json:"user_name,omitempty"`
	ConsumedAt *time.Time      `json:"consumed_at,omitempty"`
}

// Retryable reports whether the caller should try again shortly.
func (r Result) Retryable() bool {
	return r.Outcome == OutcomeBusy
}

// BusyResult is returned without consulting the engine when the pair is already in flight.
func BusyResult(meal models.MealType) Result {
	return Result{Outcome: OutcomeBusy, Message: MsgBusy, MealType: meal}
}
