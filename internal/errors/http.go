package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Hint    string         `json:"hint,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HTTPStatusFromErr maps an error kind to an HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrValidation):
		return http.StatusBadRequest
	case Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError writes err as an ErrorResponse. Internal failures are not
// echoed to the client.
func RespondWithError(c *gin.Context, err error) {
	status := HTTPStatusFromErr(err)
	resp := ErrorResponse{Error: err.Error(), Hint: Hint(err), Details: Details(err)}
	if status >= http.StatusInternalServerError {
		resp = ErrorResponse{Error: http.StatusText(status)}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}
