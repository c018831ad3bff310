package stripe

import (
	"errors"
	"net/http"
	"testing"

	ierr "focus-billing/internal/errors"

	"github.com/stretchr/testify/assert"
	stripelib "github.com/stripe/stripe-go/v75"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: "active"},
		{in: " Trialing ", want: "trialing"},
		{in: "unpaid", want: "past_due"},
		{in: "past_due", want: "past_due"},
		{in: "incomplete_expired", want: "canceled"},
		{in: "canceled", want: "canceled"},
		{in: "paused", want: "paused"},
		{in: "", want: "incomplete"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.in), tt.in)
	}
}

func TestMapError(t *testing.T) {
	missing := &stripelib.Error{Code: stripelib.ErrorCodeResourceMissing, HTTPStatusCode: http.StatusNotFound}
	err := mapError(missing, "cancel subscription sub_1")
	assert.True(t, ierr.IsNotFound(err))
	assert.False(t, ierr.Is(err, ierr.ErrProvider))

	rateLimited := &stripelib.Error{Code: stripelib.ErrorCodeRateLimit, HTTPStatusCode: http.StatusTooManyRequests}
	err = mapError(rateLimited, "cancel subscription sub_1")
	assert.True(t, ierr.Is(err, ierr.ErrProvider))

	err = mapError(errors.New("dial tcp: i/o timeout"), "cancel subscription sub_1")
	assert.True(t, ierr.Is(err, ierr.ErrProvider))
	assert.Contains(t, err.Error(), "cancel subscription sub_1")
}
