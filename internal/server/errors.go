package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openlotlabs/torii/internal/auth"
	gatedomain "github.com/openlotlabs/torii/internal/gate/domain"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

var (
	ErrNotFound           = errors.New("not_found")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type apiError struct {
	status  int
	code    string
	message string
	field   string
}

func (e *apiError) Error() string { return e.message }

func invalidRequestError() error {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    "invalid_request",
		message: "invalid request body",
	}
}

func newValidationError(field, code, message string) error {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    code,
		message: message,
		field:   field,
	}
}

// AbortWithError translates domain sentinels into a JSON error response
// and aborts the request.
func AbortWithError(c *gin.Context, err error) {
	var verr *apiError
	if errors.As(err, &verr) {
		body := gin.H{"code": verr.code, "message": verr.message}
		if verr.field != "" {
			body["field"] = verr.field
		}
		c.AbortWithStatusJSON(verr.status, gin.H{"error": body})
		return
	}

	status := statusForError(err)
	code := err.Error()
	if status == http.StatusInternalServerError {
		code = "internal_error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code}})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, lotdomain.ErrLotNotFound),
		errors.Is(err, lotdomain.ErrOwnerNotFound),
		errors.Is(err, sessiondomain.ErrSpaceNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, sessiondomain.ErrInvalidQRCode),
		errors.Is(err, sessiondomain.ErrInvalidToken),
		errors.Is(err, paymentdomain.ErrInvalidProvider):
		return http.StatusNotFound

	case errors.Is(err, ErrConflict),
		errors.Is(err, sessiondomain.ErrSpaceOccupied),
		errors.Is(err, sessiondomain.ErrSessionActive),
		errors.Is(err, paymentdomain.ErrDuplicateCharge),
		errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		return http.StatusConflict

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrKeyRevoked),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, paymentdomain.ErrChargeFailed):
		return http.StatusPaymentRequired

	case errors.Is(err, lotdomain.ErrInvalidName),
		errors.Is(err, lotdomain.ErrInvalidSpaceCnt),
		errors.Is(err, lotdomain.ErrInvalidUnit),
		errors.Is(err, lotdomain.ErrInvalidAmount),
		errors.Is(err, lotdomain.ErrInvalidDailyCap),
		errors.Is(err, lotdomain.ErrInvalidHourRange),
		errors.Is(err, sessiondomain.ErrSessionCompleted),
		errors.Is(err, sessiondomain.ErrInvalidInterval),
		errors.Is(err, gatedomain.ErrInvalidLot),
		errors.Is(err, gatedomain.ErrInvalidPlate),
		errors.Is(err, gatedomain.ErrInvalidDirection),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidCurrency):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
