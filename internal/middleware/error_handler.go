package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"medilink_app_echo/internal/workflow"
)

// CustomErrorHandler renders every error as a JSON body and maps workflow
// errors onto their HTTP status codes:
//
//	ErrInvalidTransition -> 409 Conflict
//	ErrInvalidInput      -> 422 Unprocessable Entity
//	ErrUnauthorized      -> 403 Forbidden
//	ErrNotFound          -> 404 Not Found
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "something went wrong, please try again later"

	switch {
	case errors.Is(err, workflow.ErrInvalidTransition):
		code = http.StatusConflict
		message = err.Error()
	case errors.Is(err, workflow.ErrInvalidInput):
		code = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, workflow.ErrUnauthorized):
		code = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, workflow.ErrNotFound):
		code = http.StatusNotFound
		message = err.Error()
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok && msg != "" {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, map[string]string{"error": message})
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
