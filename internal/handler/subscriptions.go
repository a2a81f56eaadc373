package handler

import (
	"net/http"

	"retailpos/internal/dto"
	"retailpos/internal/middleware"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionsHandler struct{ svc service.SubscriptionService }

func NewSubscriptionsHandler(svc service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{svc: svc}
}

func (h *SubscriptionsHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Get(c.Request.Context(), claims.BusinessUUID())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionsHandler) Usage(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Usage(c.Request.Context(), claims.BusinessUUID())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionsHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.ChangePlan(c.Request.Context(), claims.BusinessUUID(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
