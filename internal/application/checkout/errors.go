package checkout

import (
	"errors"
	"fmt"
)

// Stage names the checkout step that failed.
type Stage string

const (
	StageOrderPlacement      Stage = "order_placement"
	StagePaymentIntent       Stage = "payment_intent"
	StagePaymentConfirmation Stage = "payment_confirmation"
)

var (
	ErrEmptyCart = errors.New("checkout: cart is empty")
	ErrBusy      = errors.New("checkout: another attempt is in progress")
	ErrWrongStep = errors.New("checkout: action not allowed in the current step")
	ErrAbandoned = errors.New("checkout: session was abandoned")
)

// StageError wraps a collaborator failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("checkout %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the shopper.
func (e *StageError) Message() string {
	switch e.Stage {
	case StageOrderPlacement:
		return "Order failed: " + e.Err.Error()
	case StagePaymentIntent:
		return "Failed to initialize payment: " + e.Err.Error()
	case StagePaymentConfirmation:
		return "Payment failed: " + e.Err.Error()
	default:
		return "Something went wrong. Please try again."
	}
}

// StageOf returns the failed stage of err, or "" if err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
