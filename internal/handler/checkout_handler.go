package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type SubmitShippingRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Method     string `json:"method"`
}

type AcceptTermsRequest struct {
	Accepted bool `json:"accepted"`
}

type ApplyDiscountRequest struct {
	Code string `json:"code"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/checkout")

	g.GET("", h.get)
	g.POST("/shipping", h.submitShipping)
	g.POST("/payment", h.confirmPayment)
	g.POST("/terms", h.acceptTerms)
	g.POST("/discount", h.applyDiscount)
	g.DELETE("/discount", h.removeDiscount)
	g.POST("/order", h.placeOrder)
	g.POST("/back", h.goBack)
}

func (h *CheckoutHandler) get(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	out, err := h.uc.Get(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) submitShipping(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	var req SubmitShippingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SubmitShipping(c.Request().Context(), sessionID,
		model.ShippingInfo{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		},
		model.ShippingMethod(req.Method),
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) confirmPayment(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	out, err := h.uc.ConfirmPayment(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) acceptTerms(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	var req AcceptTermsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AcceptTerms(c.Request().Context(), sessionID, req.Accepted)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) applyDiscount(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	var req ApplyDiscountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ApplyDiscount(c.Request().Context(), sessionID, req.Code)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) removeDiscount(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	out, err := h.uc.RemoveDiscount(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) placeOrder(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	//ログイン済みならJWTのユーザーに注文を紐付ける（任意）
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.PlaceOrder(c.Request().Context(), sessionID, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) goBack(c echo.Context) error {
	sessionID := getSessionID(c)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing session"})
	}

	out, err := h.uc.GoBack(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
