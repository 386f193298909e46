package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/http/handler"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/http/middleware"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Table   *handler.TableHandler
	Catalog *handler.CatalogHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, accessSecret string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	api := app.Group("/api", middleware.NewRequestIDMiddleware(), middleware.NewAuthMiddleware(accessSecret))

	order := api.Group("/orders")
	order.Post("", h.Order.Create)
	order.Get("/:id", h.Order.Get)
	order.Post("/:id/lines", h.Order.AddLine)
	order.Put("/:id/lines/:lineId", h.Order.UpdateLine)
	order.Delete("/:id/lines/:lineId", h.Order.RemoveLine)
	order.Post("/:id/complete", h.Order.Complete)

	table := api.Group("/tables")
	table.Get("", h.Table.List)
	table.Post("/transfer", h.Table.Transfer)
	table.Get("/:id", h.Table.Get)
	table.Post("/:id/seat", h.Table.Seat)
	table.Post("/:id/end-dining", h.Table.EndDining)

	catalog := api.Group("/catalog")
	catalog.Get("/products/:id", h.Catalog.GetProduct)
	catalog.Get("/combos/:id", h.Catalog.GetCombo)
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// in the same {"error","code"} shape the handlers use.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		msg = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
		"code":  strings.ReplaceAll(strings.ToUpper(utils.StatusMessage(code)), " ", "_"),
	})
}
