package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// usecaseのHTTPErrorをそのままstatus+messageにする。
// 想定外のエラーはログに残して500で返す（ハンドラは落とさない）。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			logrus.WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Request().Method,
			}).WithError(err).Error("request failed")
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	logrus.WithFields(logrus.Fields{
		"path":   c.Path(),
		"method": c.Request().Method,
	}).WithError(err).Error("unexpected error")

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// JWTミドルウェアがcontextに入れたuser_idを取り出す。
func getUserIDFromContext(c echo.Context) (int64, bool) {
	raw := c.Get(middleware.CtxUserIDKey)

	switch v := raw.(type) {
	case int64:
		return v, v > 0
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

// 買い物客のセッションID。ヘッダで受け取る。
func getSessionID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("X-Session-ID"))
}
