package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /discountsのHTTP。validateは公開、CRUDは管理者のみ。
type DiscountHandler struct {
	uc *usecase.DiscountUsecase
}

func NewDiscountHandler(uc *usecase.DiscountUsecase) *DiscountHandler {
	return &DiscountHandler{uc: uc}
}

type ValidateDiscountRequest struct {
	Code              string   `json:"code"`
	CartTotal         int64    `json:"cart_total"`
	ProductCategories []string `json:"product_categories"`
}

type CreateDiscountRequest struct {
	Code            string `json:"code"`
	Type            string `json:"type"`
	Value           int64  `json:"value"`
	MinPurchase     int64  `json:"min_purchase"`
	MaxUses         int64  `json:"max_uses"`
	ExpiryDate      string `json:"expiry_date"`
	ProductCategory string `json:"product_category"`
}

func (h *DiscountHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.POST("/discounts/validate", h.validate)

	admin := e.Group("/discounts")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.DELETE("/:id", h.delete)
}

func (h *DiscountHandler) validate(c echo.Context) error {
	var req ValidateDiscountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	d, err := h.uc.Validate(c.Request().Context(), usecase.ValidateDiscountInput{
		Code:              req.Code,
		CartSubtotal:      req.CartTotal,
		ProductCategories: req.ProductCategories,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"discount": d})
}

func (h *DiscountHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *DiscountHandler) create(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CreateDiscountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiryDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid expiry_date"})
		}
		expiry = &t
	}

	d, err := h.uc.Create(c.Request().Context(), adminID, usecase.CreateDiscountInput{
		Code:            req.Code,
		Type:            req.Type,
		Value:           req.Value,
		MinPurchase:     req.MinPurchase,
		MaxUses:         req.MaxUses,
		ExpiryDate:      expiry,
		ProductCategory: req.ProductCategory,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, d)
}

func (h *DiscountHandler) delete(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	discountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), adminID, discountID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "deleted", ID: discountID})
}
