package grpc

import (
	"context"

	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"go.uber.org/zap"
	googleGrpc "google.golang.org/grpc"
)

const TableServiceName = "pos.TableService"

type TableHandler struct {
	service service.TableService
	logger  *zap.Logger
}

func NewTableHandler(service service.TableService, logger *zap.Logger) *TableHandler {
	return &TableHandler{service: service, logger: logger}
}

func (h *TableHandler) Seat(ctx context.Context, req *SeatRequest) (any, error) {
	view, err := h.service.Seat(ctx, req.TableID, req.OrderID)
	if err != nil {
		return nil, ToStatus(err)
	}

	mylogger.Info(ctx, h.logger, "seat succeeded", zap.String("method", "Seat"), zap.Int64("table_id", req.TableID))

	return newTable(&view.DiningTable, view.Order), nil
}

func (h *TableHandler) Transfer(ctx context.Context, req *TransferRequest) (any, error) {
	result, err := h.service.Transfer(ctx, req.FromTableID, req.ToTableID)
	if err != nil {
		return nil, ToStatus(err)
	}

	return &TransferResponse{
		OrderID: result.OrderID,
		From:    newTable(result.From, nil),
		To:      newTable(result.To, nil),
	}, nil
}

func (h *TableHandler) EndDining(ctx context.Context, req *TableRequest) (any, error) {
	table, err := h.service.EndDining(ctx, req.TableID)
	if err != nil {
		return nil, ToStatus(err)
	}
	return newTable(table, nil), nil
}

func (h *TableHandler) GetTable(ctx context.Context, req *TableRequest) (any, error) {
	view, err := h.service.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, ToStatus(err)
	}
	return newTable(&view.DiningTable, view.Order), nil
}

func (h *TableHandler) ListTables(ctx context.Context, req *ListTablesRequest) (any, error) {
	views, err := h.service.ListTables(ctx, domain.ListTablesFilter{
		OnlyActive: req.OnlyActive,
		Status:     domain.TableStatus(req.Status),
	})
	if err != nil {
		return nil, ToStatus(err)
	}

	resp := &ListTablesResponse{Tables: make([]*Table, 0, len(views))}
	for i := range views {
		resp.Tables = append(resp.Tables, newTable(&views[i].DiningTable, views[i].Order))
	}
	return resp, nil
}

var tableServiceDesc = googleGrpc.ServiceDesc{
	ServiceName: TableServiceName,
	HandlerType: (*any)(nil),
	Methods: []googleGrpc.MethodDesc{
		unaryMethod(TableServiceName, "Seat", (*TableHandler).Seat),
		unaryMethod(TableServiceName, "Transfer", (*TableHandler).Transfer),
		unaryMethod(TableServiceName, "EndDining", (*TableHandler).EndDining),
		unaryMethod(TableServiceName, "GetTable", (*TableHandler).GetTable),
		unaryMethod(TableServiceName, "ListTables", (*TableHandler).ListTables),
	},
}
