package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sme-finance/identity/middleware/activity"
	"github.com/sme-finance/identity/services/business"
	"github.com/sme-finance/identity/services/logging"
)

type BusinessHandler struct {
	businesses *business.Service
	logger     *logging.Service
}

func NewBusinessHandler(businesses *business.Service, logger *logging.Service) *BusinessHandler {
	return &BusinessHandler{
		businesses: businesses,
		logger:     logger,
	}
}

type businessRequest struct {
	Name     string `json:"business_name"`
	Currency string `json:"currency"`
	LogoURL  string `json:"business_logo"`
	Type     string `json:"business_type"`
}

func (h *BusinessHandler) Setup(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	var req businessRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	b, err := h.businesses.Setup(u.ID, req.Name, req.Currency, req.LogoURL, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrBusinessExists):
			return respondError(c, http.StatusConflict, "You have already set up a business.")
		case errors.Is(err, business.ErrNameTooShort):
			return respondValidation(c, map[string]string{"business_name": err.Error()})
		case errors.Is(err, business.ErrInvalidCurrency):
			return respondValidation(c, map[string]string{"currency": err.Error()})
		case errors.Is(err, business.ErrInvalidLogo):
			return respondValidation(c, map[string]string{"business_logo": err.Error()})
		default:
			h.logger.Error("business setup failed", zap.Error(err), zap.Uint("user_id", u.ID))
			return respondError(c, http.StatusInternalServerError, "Failed to set up business. Please try again later.")
		}
	}

	return c.JSON(http.StatusCreated, b)
}

func (h *BusinessHandler) Me(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	b, err := h.businesses.FindByUserID(u.ID)
	if err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			return respondError(c, http.StatusNotFound, "Business not found")
		}
		h.logger.Error("business lookup failed", zap.Error(err), zap.Uint("user_id", u.ID))
		return respondError(c, http.StatusInternalServerError, "Failed to load business. Please try again later.")
	}

	return c.JSON(http.StatusOK, b)
}

func (h *BusinessHandler) Update(c echo.Context) error {
	u := activity.GetUser(c)
	if u == nil {
		return respondError(c, http.StatusUnauthorized, "Authentication required")
	}

	var req businessRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}

	b, err := h.businesses.Update(u.ID, req.Name, req.Currency, req.LogoURL, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrBusinessNotFound):
			return respondError(c, http.StatusNotFound, "Business not found")
		case errors.Is(err, business.ErrNameTooShort):
			return respondValidation(c, map[string]string{"business_name": err.Error()})
		case errors.Is(err, business.ErrInvalidCurrency):
			return respondValidation(c, map[string]string{"currency": err.Error()})
		case errors.Is(err, business.ErrInvalidLogo):
			return respondValidation(c, map[string]string{"business_logo": err.Error()})
		default:
			h.logger.Error("business update failed", zap.Error(err), zap.Uint("user_id", u.ID))
			return respondError(c, http.StatusInternalServerError, "Failed to update business. Please try again later.")
		}
	}

	return c.JSON(http.StatusOK, b)
}
