// Package handler holds the conventions shared by all web handler services:
// the route root, the init interface and the JSON error shape.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service)
}

// Error is the JSON error envelope every handler returns on failure.
type Error struct {
	Error string `json:"error"`
}

// JSONError writes the error envelope with the given status code.
func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(Error{Error: msg})
}
