package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	base
	service service.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		base:    newBase(timeout),
		service: service,
		logger:  logger,
	}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var input CreateOrderRequest
	if ok, err := h.bind(c, &input); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.CreateOrder(ctx, input.toInput())
	if err != nil {
		return writeError(c, h.logger, "create order failed", err)
	}

	logSuccess(c, h.logger, "create order succeeded", zap.Int64("order_id", order.ID))

	return c.Status(fiber.StatusCreated).JSON(newOrderResponse(order))
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		return writeError(c, h.logger, "get order failed", err)
	}

	return c.JSON(newOrderResponse(order))
}

func (h *OrderHandler) AddLine(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	var input LineRequest
	if ok, err := h.bind(c, &input); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.AddLine(ctx, orderID, input.toSpec())
	if err != nil {
		return writeError(c, h.logger, "add line failed", err)
	}

	logSuccess(c, h.logger, "add line succeeded", zap.Int64("order_id", orderID))

	return c.Status(fiber.StatusCreated).JSON(newOrderResponse(order))
}

func (h *OrderHandler) UpdateLine(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	lineID, ok := paramID(c, "lineId")
	if !ok {
		return invalidParam(c, "lineId")
	}

	var input LineRequest
	if ok, err := h.bind(c, &input); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.UpdateLine(ctx, orderID, lineID, input.toSpec())
	if err != nil {
		return writeError(c, h.logger, "update line failed", err)
	}

	logSuccess(c, h.logger, "update line succeeded", zap.Int64("order_id", orderID), zap.Int64("line_id", lineID))

	return c.JSON(newOrderResponse(order))
}

func (h *OrderHandler) RemoveLine(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	lineID, ok := paramID(c, "lineId")
	if !ok {
		return invalidParam(c, "lineId")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.RemoveLine(ctx, orderID, lineID)
	if err != nil {
		return writeError(c, h.logger, "remove line failed", err)
	}

	logSuccess(c, h.logger, "remove line succeeded", zap.Int64("order_id", orderID), zap.Int64("line_id", lineID))

	return c.JSON(newOrderResponse(order))
}

func (h *OrderHandler) Complete(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.CompleteOrder(ctx, orderID)
	if err != nil {
		return writeError(c, h.logger, "complete order failed", err)
	}

	logSuccess(c, h.logger, "complete order succeeded", zap.Int64("order_id", order.ID))

	return c.JSON(newOrderResponse(order))
}
