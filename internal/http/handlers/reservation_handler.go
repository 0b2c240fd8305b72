// README: Reservation lifecycle handlers: request, accept, reject, cancel,
// payment capture, fetch.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roam/internal/http/middleware"
	"roam/internal/modules/reservation"
)

type ReservationHandler struct {
	reservations *reservation.Service
}

func NewReservationHandler(svc *reservation.Service) *ReservationHandler {
	return &ReservationHandler{reservations: svc}
}

type createReservationReq struct {
	VehicleID string `json:"vehicle_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

const dateLayout = "2006-01-02"

func (h *ReservationHandler) Create(c *gin.Context) {
	var req createReservationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid end_date")
		return
	}
	r, err := h.reservations.Request(c.Request.Context(), reservation.RequestCommand{
		VehicleID:      req.VehicleID,
		RenterUserID:   middleware.UserID(c),
		RenterVerified: middleware.Verified(c),
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservationResponse(r))
}

func (h *ReservationHandler) Get(c *gin.Context) {
	r, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if _, err := reservation.RoleOf(r, middleware.UserID(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

func (h *ReservationHandler) Accept(c *gin.Context) {
	r, err := h.reservations.Accept(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

func (h *ReservationHandler) Reject(c *gin.Context) {
	r, err := h.reservations.Reject(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

type cancelReservationReq struct {
	Reason string `json:"reason"`
}

func (h *ReservationHandler) Cancel(c *gin.Context) {
	var req cancelReservationReq
	_ = c.ShouldBindJSON(&req)
	r, err := h.reservations.Cancel(c.Request.Context(), reservation.CancelCommand{
		ReservationID: c.Param("id"),
		ActorUserID:   middleware.UserID(c),
		Reason:        req.Reason,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

// PaymentCaptured is the capture callback from the payment rail.
func (h *ReservationHandler) PaymentCaptured(c *gin.Context) {
	r, err := h.reservations.MarkPaymentCaptured(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

func reservationResponse(r *reservation.Reservation) gin.H {
	resp := gin.H{
		"id":                r.ID,
		"vehicle_id":        r.VehicleID,
		"renter_user_id":    r.RenterUserID,
		"owner_user_id":     r.OwnerUserID,
		"status":            r.Status,
		"start_date":        r.StartDate.Format(dateLayout),
		"end_date":          r.EndDate.Format(dateLayout),
		"total_amount":      r.TotalAmount,
		"commission_amount": r.CommissionAmount,
		"owner_payout":      r.OwnerPayout,
		"deposit_amount":    r.DepositAmount,
		"currency":          r.Currency,
		"payment_status":    r.PaymentStatus,
		"deposit_status":    r.DepositStatus,
		"created_at":        r.CreatedAt,
		"updated_at":        r.UpdatedAt,
	}
	if r.CancelledBy != nil {
		resp["cancelled_by"] = *r.CancelledBy
		resp["refund_percent"] = r.RefundPercent
		resp["refund_amount"] = r.RefundAmount
		resp["penalty_amount"] = r.PenaltyAmount
		resp["cancellation_reason"] = r.CancellationReason
	}
	if r.DepositRetained != nil {
		resp["deposit_retained"] = *r.DepositRetained
	}
	return resp
}
