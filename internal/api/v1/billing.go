package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/policlinic/backoffice/internal/api/dto"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/service"
	"github.com/policlinic/backoffice/internal/types"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{service: service, log: log}
}

// @Summary Bill a completed session
// @Tags Billings
// @Accept json
// @Produce json
// @Param billing body dto.CreateSessionBillingRequest true "Session to bill"
// @Success 201 {object} dto.SessionBillingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /billings [post]
func (h *BillingHandler) CreateSessionBilling(c *gin.Context) {
	var req dto.CreateSessionBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}

	resp, err := h.service.CreateSessionBilling(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a session billing
// @Tags Billings
// @Produce json
// @Param id path string true "Billing ID"
// @Success 200 {object} dto.SessionBillingResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /billings/{id} [get]
func (h *BillingHandler) GetBilling(c *gin.Context) {
	resp, err := h.service.GetBilling(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Apply a manual discount to a billing
// @Tags Billings
// @Accept json
// @Produce json
// @Param id path string true "Billing ID"
// @Param discount body dto.ApplyDiscountRequest true "Discount"
// @Success 201 {object} dto.SessionBillingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /billings/{id}/discounts [post]
func (h *BillingHandler) ApplyDiscount(c *gin.Context) {
	h.applyDiscount(c, func(req *dto.ApplyDiscountRequest) {
		req.BillingID = c.Param("id")
		req.SessionID = ""
	})
}

// @Summary Apply a manual discount to the billing of a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param discount body dto.ApplyDiscountRequest true "Discount"
// @Success 201 {object} dto.SessionBillingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /sessions/{id}/discounts [post]
func (h *BillingHandler) ApplySessionDiscount(c *gin.Context) {
	h.applyDiscount(c, func(req *dto.ApplyDiscountRequest) {
		req.SessionID = c.Param("id")
		req.BillingID = ""
	})
}

func (h *BillingHandler) applyDiscount(c *gin.Context, target func(*dto.ApplyDiscountRequest)) {
	var req dto.ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidBody(err))
		return
	}
	target(&req)
	if req.AppliedBy == "" {
		req.AppliedBy = types.GetUserID(c.Request.Context())
	}

	resp, err := h.service.ApplyDiscount(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get the billing of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionBillingResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sessions/{id}/billing [get]
func (h *BillingHandler) GetBillingForSession(c *gin.Context) {
	resp, err := h.service.GetBillingForSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the current final amount of a session
// @Description Returns the billed final amount, or the consultation subtotal when the session is not billed yet
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.FinalAmountResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sessions/{id}/final-amount [get]
func (h *BillingHandler) GetFinalAmount(c *gin.Context) {
	resp, err := h.service.CalculateFinalAmount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func invalidBody(err error) error {
	return ierr.WithError(err).
		WithHint("Invalid request format").
		Mark(ierr.ErrValidation)
}
