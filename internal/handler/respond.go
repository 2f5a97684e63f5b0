package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/service"
)

// writeError maps a service failure to an HTTP response.  Service errors
// carry a stable code the frontend switches on; anything else is a 500
// with a generic body so internals never leak.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		body := echo.Map{"error": se.Code}
		if len(se.Fields) > 0 {
			body["fields"] = se.Fields
		}
		return c.JSON(statusOf(se.Kind), body)
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
}

func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusUnprocessableEntity
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// pageParams reads ?page and ?page_size with the usual clamping.
func pageParams(c echo.Context) (int, int) {
	page := atoiDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	ps := atoiDefault(c.QueryParam("page_size"), 20)
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}
	return page, ps
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
