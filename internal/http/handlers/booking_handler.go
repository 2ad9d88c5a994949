// README: Booking handlers: intake, lookup, transitions, cancel, OTP check.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetbook/internal/modules/booking"
	"fleetbook/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{bookings: svc}
}

type createBookingReq struct {
	CustomerID    string    `json:"customer_id"`
	PickupAddress string    `json:"pickup_address"`
	Destination   string    `json:"destination"`
	PickupAt      time.Time `json:"pickup_at"`
	VehicleModel  string    `json:"vehicle_model"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), booking.CreateCommand{
		CustomerID:    types.ID(req.CustomerID),
		PickupAddress: req.PickupAddress,
		Destination:   req.Destination,
		PickupAt:      req.PickupAt,
		VehicleModel:  req.VehicleModel,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, bookingView(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

type transitionReq struct {
	Target     string   `json:"target"`
	Reason     string   `json:"reason"`
	DistanceKm *float64 `json:"distance_km"`
	VehicleID  *string  `json:"vehicle_id"`
	DriverID   *string  `json:"driver_id"`
}

func (h *BookingHandler) Transition(c *gin.Context) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := booking.TransitionCommand{
		BookingID:  types.ID(c.Param("id")),
		Target:     booking.Status(req.Target),
		ActorType:  "staff",
		Reason:     req.Reason,
		DistanceKm: req.DistanceKm,
	}
	if req.VehicleID != nil {
		id := types.ID(*req.VehicleID)
		cmd.VehicleID = &id
	}
	if req.DriverID != nil {
		id := types.ID(*req.DriverID)
		cmd.DriverID = &id
	}
	b, err := h.bookings.Transition(c.Request.Context(), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	b, err := h.bookings.Transition(c.Request.Context(), booking.TransitionCommand{
		BookingID: types.ID(c.Param("id")),
		Target:    booking.StatusCanceled,
		ActorType: "staff",
		Reason:    req.Reason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bookingView(b))
}

func (h *BookingHandler) ValidateOTP(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	result, err := h.bookings.ValidateOTP(c.Request.Context(), types.ID(c.Param("id")), req.Code)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"result": result})
}

func bookingView(b *booking.Booking) gin.H {
	v := gin.H{
		"id":             b.ID,
		"customer_id":    b.CustomerID,
		"pickup_address": b.PickupAddress,
		"destination":    b.Destination,
		"pickup_at":      b.PickupAt,
		"vehicle_model":  b.VehicleModel,
		"status":         b.Status,
		"fare_total":     b.FareTotal.Amount,
		"currency":       b.FareTotal.Currency,
	}
	if b.VehicleID != nil {
		v["vehicle_id"] = *b.VehicleID
	}
	if b.DriverID != nil {
		v["driver_id"] = *b.DriverID
	}
	if b.DistanceKm != nil {
		v["distance_km"] = *b.DistanceKm
	}
	return v
}
