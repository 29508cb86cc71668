package http

import "github.com/labstack/echo/v4"

// Handler is a group of dashboard routes registered on the Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
