// README: Reservation thread handlers. Messages are filtered by the caller's
// role so owner-only and renter-only system lines stay private.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roam/internal/http/middleware"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
)

type TimelineHandler struct {
	timeline     *timeline.Service
	reservations *reservation.Service
}

func NewTimelineHandler(tl *timeline.Service, res *reservation.Service) *TimelineHandler {
	return &TimelineHandler{timeline: tl, reservations: res}
}

func (h *TimelineHandler) ListMessages(c *gin.Context) {
	r, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	role, err := reservation.RoleOf(r, middleware.UserID(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	msgs, err := h.timeline.Messages(c.Request.Context(), r.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		if !visibleTo(m.Audience, role) {
			continue
		}
		item := gin.H{
			"id":         m.ID,
			"kind":       m.Kind,
			"text":       m.Text,
			"created_at": m.CreatedAt,
		}
		if m.AuthorUserID != "" {
			item["author_user_id"] = m.AuthorUserID
		}
		if m.Kind == timeline.KindActions {
			item["actions"] = m.Actions
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type postMessageReq struct {
	Text string `json:"text"`
}

func (h *TimelineHandler) PostMessage(c *gin.Context) {
	var req postMessageReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		writeError(c, http.StatusBadRequest, "text required")
		return
	}
	r, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if _, err := reservation.RoleOf(r, middleware.UserID(c)); err != nil {
		writeDomainError(c, err)
		return
	}
	m, err := h.timeline.Post(c.Request.Context(), r.ID, middleware.UserID(c), req.Text)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         m.ID,
		"kind":       m.Kind,
		"text":       m.Text,
		"created_at": m.CreatedAt,
	})
}

func visibleTo(a timeline.Audience, role reservation.Role) bool {
	switch a {
	case timeline.AudienceOwner:
		return role == reservation.RoleOwner
	case timeline.AudienceRenter:
		return role == reservation.RoleRenter
	}
	return true
}
