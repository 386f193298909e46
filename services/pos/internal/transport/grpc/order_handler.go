package grpc

import (
	"context"

	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
)

const OrderServiceName = "pos.OrderService"

type OrderHandler struct {
	service service.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

func (h *OrderHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (any, error) {
	order, err := h.service.CreateOrder(ctx, req.toInput())
	if err != nil {
		return nil, ToStatus(err)
	}

	mylogger.Info(ctx, h.logger, "create order succeeded", zap.String("method", "CreateOrder"), zap.Int64("order_id", order.ID))

	return newOrder(order), nil
}

func (h *OrderHandler) GetOrder(ctx context.Context, req *OrderRequest) (any, error) {
	order, err := h.service.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, ToStatus(err)
	}
	return newOrder(order), nil
}

func (h *OrderHandler) AddLine(ctx context.Context, req *AddLineRequest) (any, error) {
	order, err := h.service.AddLine(ctx, req.OrderID, req.Line.toSpec())
	if err != nil {
		return nil, ToStatus(err)
	}
	return newOrder(order), nil
}

func (h *OrderHandler) UpdateLine(ctx context.Context, req *UpdateLineRequest) (any, error) {
	order, err := h.service.UpdateLine(ctx, req.OrderID, req.LineID, req.Line.toSpec())
	if err != nil {
		return nil, ToStatus(err)
	}
	return newOrder(order), nil
}

func (h *OrderHandler) RemoveLine(ctx context.Context, req *RemoveLineRequest) (any, error) {
	order, err := h.service.RemoveLine(ctx, req.OrderID, req.LineID)
	if err != nil {
		return nil, ToStatus(err)
	}
	return newOrder(order), nil
}

func (h *OrderHandler) CompleteOrder(ctx context.Context, req *OrderRequest) (any, error) {
	order, err := h.service.CompleteOrder(ctx, req.OrderID)
	if err != nil {
		return nil, ToStatus(err)
	}

	mylogger.Info(ctx, h.logger, "complete order succeeded", zap.String("method", "CompleteOrder"), zap.Int64("order_id", order.ID))

	return newOrder(order), nil
}

var orderServiceDesc = googleGrpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*any)(nil),
	Methods: []googleGrpc.MethodDesc{
		unaryMethod(OrderServiceName, "CreateOrder", (*OrderHandler).CreateOrder),
		unaryMethod(OrderServiceName, "GetOrder", (*OrderHandler).GetOrder),
		unaryMethod(OrderServiceName, "AddLine", (*OrderHandler).AddLine),
		unaryMethod(OrderServiceName, "UpdateLine", (*OrderHandler).UpdateLine),
		unaryMethod(OrderServiceName, "RemoveLine", (*OrderHandler).RemoveLine),
		unaryMethod(OrderServiceName, "CompleteOrder", (*OrderHandler).CompleteOrder),
	},
}
