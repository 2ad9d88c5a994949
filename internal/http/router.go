// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fleetbook/internal/http/handlers"
	"fleetbook/internal/http/middleware"
	"fleetbook/internal/modules/assignment"
	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/fleet"
)

type RouterDeps struct {
	Bookings *booking.Service
	Assigner *assignment.Service
	Fleet    *fleet.Service
	APIKey   string
	Log      *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.APIKey(deps.APIKey))

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/transition", bookingHandler.Transition)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/otp/validate", bookingHandler.ValidateOTP)

	assignmentHandler := handlers.NewAssignmentHandler(deps.Assigner)
	api.POST("/bookings/:id/assign", assignmentHandler.Assign)
	api.POST("/assignments/run", assignmentHandler.RunBatch)

	fleetHandler := handlers.NewFleetHandler(deps.Fleet)
	api.POST("/vehicles", fleetHandler.CreateVehicle)
	api.POST("/vehicles/:id/approve", fleetHandler.ApproveVehicle)
	api.POST("/drivers", fleetHandler.CreateDriver)
	api.POST("/drivers/:id/approve", fleetHandler.ApproveDriver)
	api.POST("/shifts", fleetHandler.OpenShift)
	api.POST("/shifts/:id/close", fleetHandler.CloseShift)

	return r
}
