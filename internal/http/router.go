// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"roam/internal/http/handlers"
	"roam/internal/http/middleware"
	"roam/internal/modules/dispute"
	"roam/internal/modules/inspection"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
)

type RouterDeps struct {
	Reservations *reservation.Service
	Inspections  *inspection.Service
	Disputes     *dispute.Service
	Timeline     *timeline.Service
	AdminUserID  string
	Log          *logrus.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Identity())

	resHandler := handlers.NewReservationHandler(deps.Reservations)
	api.POST("/reservations", resHandler.Create)
	api.GET("/reservations/:id", resHandler.Get)
	api.POST("/reservations/:id/accept", resHandler.Accept)
	api.POST("/reservations/:id/reject", resHandler.Reject)
	api.POST("/reservations/:id/cancel", resHandler.Cancel)
	api.POST("/payments/:id/captured", resHandler.PaymentCaptured)

	inspHandler := handlers.NewInspectionHandler(deps.Inspections)
	api.POST("/reservations/:id/reports", inspHandler.Submit)

	tlHandler := handlers.NewTimelineHandler(deps.Timeline, deps.Reservations)
	api.GET("/reservations/:id/messages", tlHandler.ListMessages)
	api.POST("/reservations/:id/messages", tlHandler.PostMessage)

	dispHandler := handlers.NewDisputeHandler(deps.Disputes)
	api.POST("/reservations/:id/disputes", dispHandler.Open)
	api.POST("/disputes/:id/resolve", middleware.RequireAdmin(deps.AdminUserID), dispHandler.Resolve)

	return r
}
