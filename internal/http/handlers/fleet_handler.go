// README: Fleet handlers: vehicle/driver registration, approval, shifts.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetbook/internal/modules/fleet"
	"fleetbook/internal/types"
)

type FleetHandler struct {
	fleet *fleet.Service
}

func NewFleetHandler(svc *fleet.Service) *FleetHandler {
	return &FleetHandler{fleet: svc}
}

func (h *FleetHandler) CreateVehicle(c *gin.Context) {
	var req struct {
		Model        string `json:"model"`
		LicensePlate string `json:"license_plate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := h.fleet.RegisterVehicle(c.Request.Context(), fleet.RegisterVehicleCommand{
		Model:        req.Model,
		LicensePlate: req.LicensePlate,
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": v.ID, "status": v.Status})
}

func (h *FleetHandler) ApproveVehicle(c *gin.Context) {
	if err := h.fleet.ApproveVehicle(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": fleet.VehicleStatusApproved})
}

func (h *FleetHandler) CreateDriver(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.fleet.RegisterDriver(c.Request.Context(), fleet.RegisterDriverCommand{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": d.ID, "status": d.Status})
}

func (h *FleetHandler) ApproveDriver(c *gin.Context) {
	if err := h.fleet.ApproveDriver(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": fleet.DriverStatusApproved})
}

func (h *FleetHandler) OpenShift(c *gin.Context) {
	var req struct {
		VehicleID string `json:"vehicle_id"`
		DriverID  string `json:"driver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.fleet.OpenShift(c.Request.Context(), fleet.OpenShiftCommand{
		VehicleID: types.ID(req.VehicleID),
		DriverID:  types.ID(req.DriverID),
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"id":          a.ID,
		"vehicle_id":  a.VehicleID,
		"driver_id":   a.DriverID,
		"assigned_at": a.AssignedAt,
	})
}

func (h *FleetHandler) CloseShift(c *gin.Context) {
	if err := h.fleet.CloseShift(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"closed": true})
}
