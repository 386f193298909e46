package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/pkg/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/grpc"
	"go.uber.org/zap"
)

// errorCodes gives every specific failure a stable machine-readable code.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrOrderNotFound, "ORDER_NOT_FOUND"},
	{domain.ErrLineNotFound, "LINE_NOT_FOUND"},
	{domain.ErrTableNotFound, "TABLE_NOT_FOUND"},
	{domain.ErrProductNotFound, "PRODUCT_NOT_FOUND"},
	{domain.ErrComboNotFound, "COMBO_NOT_FOUND"},
	{domain.ErrSourceNotFound, "SOURCE_NOT_FOUND"},
	{domain.ErrTargetNotFound, "TARGET_NOT_FOUND"},
	{domain.ErrOrderNotMutable, "ORDER_NOT_MUTABLE"},
	{domain.ErrOrderNotDraft, "ORDER_NOT_DRAFT"},
	{domain.ErrStatusCrossover, "STATUS_CROSSOVER"},
	{domain.ErrTableInactive, "TABLE_INACTIVE"},
	{domain.ErrTableOccupied, "TABLE_OCCUPIED"},
	{domain.ErrTableNotOccupied, "TABLE_NOT_OCCUPIED"},
	{domain.ErrOrderAlreadySeated, "ORDER_ALREADY_SEATED"},
	{domain.ErrProductInactive, "PRODUCT_INACTIVE"},
	{domain.ErrComboInactive, "COMBO_INACTIVE"},
	{domain.ErrComboEmpty, "COMBO_EMPTY"},
	{domain.ErrSourceNotOccupied, "SOURCE_NOT_OCCUPIED"},
	{domain.ErrSourceNoOrder, "SOURCE_NO_ORDER"},
	{domain.ErrTargetInactive, "TARGET_INACTIVE"},
	{domain.ErrTargetOccupied, "TARGET_OCCUPIED"},
	{domain.ErrOptionGroupNotFound, "OPTION_GROUP_NOT_FOUND"},
	{domain.ErrOptionValueNotFound, "OPTION_VALUE_NOT_FOUND"},
	{domain.ErrNoOptionsAvailable, "NO_OPTIONS_AVAILABLE"},
	{domain.ErrOrderNotSettled, "ORDER_NOT_SETTLED"},
	{domain.ErrValidation, "VALIDATION_ERROR"},
}

func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL"
}

func writeError(c *fiber.Ctx, logger *zap.Logger, msg string, err error) error {
	st := grpc.ToStatus(err)
	httpCode := utils.GRPCStatusToHTTP(st)

	fields := []zap.Field{
		zap.Int("http_code", httpCode),
		zap.String("path", c.Path()),
		zap.Error(err),
	}
	fields = append(fields, actor(c)...)
	if httpCode >= fiber.StatusInternalServerError {
		mylogger.Error(c.UserContext(), logger, msg, fields...)
	} else {
		mylogger.Warn(c.UserContext(), logger, msg, fields...)
	}

	body := fiber.Map{
		"error": err.Error(),
		"code":  errorCode(err),
	}
	if httpCode == fiber.StatusInternalServerError {
		body["error"] = "internal error"
	}

	return c.Status(httpCode).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string, fields map[string]string) error {
	body := fiber.Map{
		"error": msg,
		"code":  "VALIDATION_ERROR",
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}

	return c.Status(fiber.StatusBadRequest).JSON(body)
}
