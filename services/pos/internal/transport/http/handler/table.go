package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
)

type TableHandler struct {
	base
	service service.TableService
	logger  *zap.Logger
}

func NewTableHandler(service service.TableService, logger *zap.Logger, timeout time.Duration) *TableHandler {
	return &TableHandler{
		base:    newBase(timeout),
		service: service,
		logger:  logger,
	}
}

func (h *TableHandler) List(c *fiber.Ctx) error {
	filter := domain.ListTablesFilter{
		OnlyActive: c.QueryBool("active", false),
	}

	switch status := domain.TableStatus(c.Query("status")); status {
	case "":
	case domain.TableStatusAvailable, domain.TableStatusOccupied:
		filter.Status = status
	default:
		return badRequest(c, "validation failed", map[string]string{"status": "status must be one of [AVAILABLE OCCUPIED]"})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	views, err := h.service.ListTables(ctx, filter)
	if err != nil {
		return writeError(c, h.logger, "list tables failed", err)
	}

	resp := make([]TableResponse, 0, len(views))
	for i := range views {
		resp = append(resp, newTableResponse(&views[i].DiningTable, views[i].Order))
	}

	return c.JSON(fiber.Map{"tables": resp})
}

func (h *TableHandler) Get(c *fiber.Ctx) error {
	tableID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.GetTable(ctx, tableID)
	if err != nil {
		return writeError(c, h.logger, "get table failed", err)
	}

	return c.JSON(newTableResponse(&view.DiningTable, view.Order))
}

func (h *TableHandler) Seat(c *fiber.Ctx) error {
	tableID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	// The body is optional: without order_id a new draft is opened.
	var input SeatRequest
	if len(c.Body()) > 0 {
		if ok, err := h.bind(c, &input); !ok {
			return err
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	view, err := h.service.Seat(ctx, tableID, input.OrderID)
	if err != nil {
		return writeError(c, h.logger, "seat failed", err)
	}

	logSuccess(c, h.logger, "seat succeeded", zap.Int64("table_id", tableID))

	return c.JSON(newTableResponse(&view.DiningTable, view.Order))
}

func (h *TableHandler) Transfer(c *fiber.Ctx) error {
	var input TransferRequest
	if ok, err := h.bind(c, &input); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.service.Transfer(ctx, input.FromTableID, input.ToTableID)
	if err != nil {
		return writeError(c, h.logger, "transfer failed", err)
	}

	logSuccess(
		c,
		h.logger,
		"transfer succeeded",
		zap.Int64("order_id", result.OrderID),
		zap.Int64("from_table_id", input.FromTableID),
		zap.Int64("to_table_id", input.ToTableID),
	)

	return c.JSON(TransferResponse{
		OrderID: result.OrderID,
		From:    newTableResponse(result.From, nil),
		To:      newTableResponse(result.To, nil),
	})
}

func (h *TableHandler) EndDining(c *fiber.Ctx) error {
	tableID, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	table, err := h.service.EndDining(ctx, tableID)
	if err != nil {
		return writeError(c, h.logger, "end dining failed", err)
	}

	logSuccess(c, h.logger, "end dining succeeded", zap.Int64("table_id", tableID))

	return c.JSON(newTableResponse(table, nil))
}
