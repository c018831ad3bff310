package billing

import (
	ierr "focus-billing/internal/errors"
)

// RejectionReason is the machine readable cause of a refused purchase.
type RejectionReason string

const (
	ReasonUnknownPrice         RejectionReason = "unknown_price"
	ReasonPurchaseKindMismatch RejectionReason = "purchase_kind_mismatch"
	ReasonLifetimeOwned        RejectionReason = "lifetime_owned"
	ReasonDuplicateTier        RejectionReason = "duplicate_tier"
	ReasonDowngrade            RejectionReason = "downgrade"
)

// Rejection is returned by the guard when a purchase is not allowed.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

func (r *Rejection) Error() string {
	return string(r.Reason) + ": " + r.Message
}

func reject(reason RejectionReason, msg string) error {
	return ierr.WithError(&Rejection{Reason: reason, Message: msg}).
		WithHint(msg).
		Mark(ierr.ErrValidation)
}

// AsRejection extracts a Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if ierr.As(err, &r) {
		return r, true
	}
	return nil, false
}
