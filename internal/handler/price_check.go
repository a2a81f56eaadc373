package handler

import (
	"net/http"

	"retailpos/internal/apierror"
	"retailpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PriceCheckHandler serves the barcode price lookup for in-store price
// checker kiosks. No auth: the kiosk identifies the tenant by query param.
type PriceCheckHandler struct{ svc service.ProductService }

func NewPriceCheckHandler(svc service.ProductService) *PriceCheckHandler {
	return &PriceCheckHandler{svc: svc}
}

func (h *PriceCheckHandler) GetByBarcode(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("business_id required"))
		return
	}
	resp, err := h.svc.PriceCheck(c.Request.Context(), businessID, c.Param("barcode"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
