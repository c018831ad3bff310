package stripe

import (
	"strings"

	"focus-billing/internal/domain/entitlements"
)

// NormalizeStatus folds provider subscription statuses into the set the
// engine stores. Only active and trialing entitle.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return entitlements.StatusIncomplete
	case "active":
		return entitlements.StatusActive
	case "trialing":
		return entitlements.StatusTrialing
	case "past_due", "unpaid":
		return entitlements.StatusPastDue
	case "canceled", "incomplete_expired":
		return entitlements.StatusCanceled
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}
