package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/pkg/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type base struct {
	validate *validator.Validate
	timeout  time.Duration
}

func newBase(timeout time.Duration) base {
	return base{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
	}
}

func (b *base) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), b.timeout)
}

// bind parses the JSON body into dst and validates it. On failure the 400
// response has already been written and the returned bool is false.
func (b *base) bind(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, badRequest(c, "error parsing body", nil)
	}

	if err := b.validate.Struct(dst); err != nil {
		return false, badRequest(c, "validation failed", utils.FormatValidationError(err))
	}

	return true, nil
}

func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidParam(c *fiber.Ctx, name string) error {
	return badRequest(c, "invalid path parameter", map[string]string{name: name + " must be a positive integer"})
}

// actor returns the log fields identifying who made the request.
func actor(c *fiber.Ctx) []zap.Field {
	var fields []zap.Field
	if staffID, ok := c.Locals(middleware.LocalStaffID).(int64); ok {
		fields = append(fields, zap.Int64("staff_id", staffID))
	}
	if role, ok := c.Locals(middleware.LocalRole).(string); ok {
		fields = append(fields, zap.String("role", role))
	}
	return fields
}

// logSuccess records a state change together with the staff member behind it.
func logSuccess(c *fiber.Ctx, logger *zap.Logger, msg string, fields ...zap.Field) {
	mylogger.Info(c.UserContext(), logger, msg, append(fields, actor(c)...)...)
}
