package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	base
	service service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(service service.CatalogService, logger *zap.Logger, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		base:    newBase(timeout),
		service: service,
		logger:  logger,
	}
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.GetProduct(ctx, productID)
	if err != nil {
		return writeError(c, h.logger, "get product failed", err)
	}

	return c.JSON(newProductResponse(view))
}

func (h *CatalogHandler) GetCombo(c *fiber.Ctx) error {
	comboID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.GetCombo(ctx, comboID)
	if err != nil {
		return writeError(c, h.logger, "get combo failed", err)
	}

	return c.JSON(newComboResponse(view))
}
