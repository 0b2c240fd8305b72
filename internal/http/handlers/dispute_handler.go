// README: Dispute handlers: participant open, admin resolve.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roam/internal/http/middleware"
	"roam/internal/modules/dispute"
)

type DisputeHandler struct {
	disputes *dispute.Service
}

func NewDisputeHandler(svc *dispute.Service) *DisputeHandler {
	return &DisputeHandler{disputes: svc}
}

type openDisputeReq struct {
	Reason      string   `json:"reason"`
	Description string   `json:"description"`
	PhotoRefs   []string `json:"photo_refs"`
}

func (h *DisputeHandler) Open(c *gin.Context) {
	var req openDisputeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.disputes.Open(c.Request.Context(), dispute.OpenCommand{
		ReservationID: c.Param("id"),
		ActorUserID:   middleware.UserID(c),
		Reason:        req.Reason,
		Description:   req.Description,
		PhotoRefs:     req.PhotoRefs,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, disputeResponse(d))
}

type resolveDisputeReq struct {
	Resolution   string `json:"resolution"`
	RetainAmount int64  `json:"retain_amount"`
	AdminNote    string `json:"admin_note"`
}

func (h *DisputeHandler) Resolve(c *gin.Context) {
	var req resolveDisputeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.disputes.Resolve(c.Request.Context(), dispute.ResolveCommand{
		DisputeID:    c.Param("id"),
		AdminUserID:  middleware.UserID(c),
		Resolution:   dispute.Resolution(req.Resolution),
		RetainAmount: req.RetainAmount,
		AdminNote:    req.AdminNote,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputeResponse(d))
}

func disputeResponse(d *dispute.Dispute) gin.H {
	resp := gin.H{
		"id":             d.ID,
		"reservation_id": d.ReservationID,
		"vehicle_id":     d.VehicleID,
		"opened_by":      d.OpenedByUserID,
		"opened_by_role": d.OpenedByRole,
		"reason":         d.Reason,
		"description":    d.Description,
		"photo_refs":     d.PhotoRefs,
		"status":         d.Status,
		"created_at":     d.CreatedAt,
	}
	if d.Resolution != nil {
		resp["resolution"] = *d.Resolution
		resp["retained_amount"] = d.RetainedAmount
		resp["resolved_at"] = d.ResolvedAt
		if d.AdminNote != nil {
			resp["admin_note"] = *d.AdminNote
		}
	}
	return resp
}
