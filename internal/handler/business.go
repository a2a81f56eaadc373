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

type BusinessHandler struct{ svc service.BusinessService }

func NewBusinessHandler(svc service.BusinessService) *BusinessHandler {
	return &BusinessHandler{svc: svc}
}

// Register is the public tenant signup endpoint.
func (h *BusinessHandler) Register(c *gin.Context) {
	var req dto.RegisterBusinessRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BusinessHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Get(c.Request.Context(), claims.BusinessUUID())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BusinessHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.CreateLocation(c.Request.Context(), claims.BusinessUUID(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BusinessHandler) ListLocations(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.ListLocations(c.Request.Context(), claims.BusinessUUID())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *BusinessHandler) UpdateLocation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateLocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.UpdateLocation(c.Request.Context(), claims.BusinessUUID(), id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
