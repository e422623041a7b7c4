package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"workflow-api/domain"
)

// respondError maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 with the cause logged, never swallowed.
func respondError(c echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, errorBody(err))
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorBody(err))
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorBody(err))
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err))
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrSelfDelete):
		return c.JSON(http.StatusConflict, errorBody(err))
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
