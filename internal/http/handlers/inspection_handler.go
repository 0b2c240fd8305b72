// README: Condition report handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roam/internal/http/middleware"
	"roam/internal/modules/inspection"
)

type InspectionHandler struct {
	inspections *inspection.Service
}

func NewInspectionHandler(svc *inspection.Service) *InspectionHandler {
	return &InspectionHandler{inspections: svc}
}

type submitReportReq struct {
	Phase          string            `json:"phase"`
	RequiredPhotos map[string]string `json:"required_photos"`
	DetailPhotos   []detailPhotoReq  `json:"detail_photos"`
	Video360Ref    string            `json:"video_360_ref"`
}

type detailPhotoReq struct {
	Ref  string `json:"ref"`
	Note string `json:"note"`
}

func (h *InspectionHandler) Submit(c *gin.Context) {
	var req submitReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Phase != string(inspection.PhaseCheckin) && req.Phase != string(inspection.PhaseCheckout) {
		writeError(c, http.StatusBadRequest, "phase must be checkin or checkout")
		return
	}
	detail := make([]inspection.DetailPhoto, 0, len(req.DetailPhotos))
	for _, p := range req.DetailPhotos {
		detail = append(detail, inspection.DetailPhoto{Ref: p.Ref, Note: p.Note})
	}
	report, err := h.inspections.Submit(c.Request.Context(), inspection.SubmitCommand{
		ReservationID:  c.Param("id"),
		ActorUserID:    middleware.UserID(c),
		Phase:          inspection.Phase(req.Phase),
		RequiredPhotos: req.RequiredPhotos,
		DetailPhotos:   detail,
		Video360Ref:    req.Video360Ref,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             report.ID,
		"reservation_id": report.ReservationID,
		"phase":          report.Phase,
		"role":           report.Role,
		"completed_at":   report.CompletedAt,
	})
}
