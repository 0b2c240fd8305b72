// README: Shared handler utilities: JSON envelopes and the domain error to
// HTTP status mapping.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roam/internal/modules/calendar"
	"roam/internal/modules/deposit"
	"roam/internal/modules/dispute"
	"roam/internal/modules/inspection"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
	"roam/internal/modules/vehicle"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeDomainError(c *gin.Context, err error) {
	switch err {
	case reservation.ErrBadRequest, dispute.ErrBadRequest, calendar.ErrBadRange,
		inspection.ErrMissingRequiredPhotos, inspection.ErrTooManyDetailPhotos,
		dispute.ErrDescriptionTooShort:
		writeError(c, http.StatusBadRequest, err.Error())
	case reservation.ErrForbidden, reservation.ErrKycRequired, dispute.ErrForbidden:
		writeError(c, http.StatusForbidden, err.Error())
	case reservation.ErrNotFound, vehicle.ErrNotFound, dispute.ErrNotFound,
		timeline.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case reservation.ErrInvalidTransition, reservation.ErrConflict,
		reservation.ErrVehicleUnavailable, reservation.ErrAlreadyRequested,
		reservation.ErrCooldownActive, reservation.ErrOwnerBlockedDates,
		reservation.ErrPaymentNotInitialized, reservation.ErrPaymentNotCompleted,
		inspection.ErrInvalidStatus, inspection.ErrAlreadySubmitted,
		dispute.ErrInvalidStatus, dispute.ErrAlreadyOpen, dispute.ErrWindowExpired,
		dispute.ErrNoCheckoutReport, dispute.ErrAlreadyResolved:
		writeError(c, http.StatusConflict, err.Error())
	case deposit.ErrGatewayUnavailable:
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
