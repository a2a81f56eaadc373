package handler

import (
	"net/http"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/middleware"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler exposes the ledger: manual movements, history, alerts, and
// the snapshot-vs-replay consistency check. Sale movements are not accepted
// here; they only happen inside the checkout transaction.
type StockHandler struct{ svc service.LedgerService }

func NewStockHandler(svc service.LedgerService) *StockHandler {
	return &StockHandler{svc: svc}
}

func (h *StockHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.RecordMovement(c.Request.Context(), claims.UserUUID(), claims.BusinessUUID(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *StockHandler) ListMovements(c *gin.Context) {
	var filter dto.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.ListMovements(c.Request.Context(), claims.BusinessUUID(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) LowStockAlerts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var locationID *uuid.UUID
	if raw := c.Query("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid location_id"))
			return
		}
		locationID = &id
	}

	alerts, err := h.svc.LowStockAlerts(c.Request.Context(), claims.BusinessUUID(), locationID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "count": len(alerts)})
}

func (h *StockHandler) VerifySnapshot(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	locationID, err := uuid.Parse(c.Query("location_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("location_id required"))
		return
	}
	claims := middleware.GetClaims(c)
	check, err := h.svc.VerifySnapshot(c.Request.Context(), claims.BusinessUUID(), productID, locationID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
