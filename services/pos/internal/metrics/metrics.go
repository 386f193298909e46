package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
)

type Metrics struct {
	OrdersCreated   prometheus.Counter
	LineMutations   *prometheus.CounterVec
	StatusChanges   *prometheus.CounterVec
	TableOperations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_orders_created_total",
			Help: "Orders created, including drafts opened by seating a table.",
		}),
		LineMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_order_lines_mutations_total",
			Help: "Order line mutations by operation and result.",
		}, []string{"op", "result"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_order_status_changes_total",
			Help: "Order status transitions by target status.",
		}, []string{"status"}),
		TableOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_table_operations_total",
			Help: "Table session operations by operation and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(m.OrdersCreated, m.LineMutations, m.StatusChanges, m.TableOperations)

	return m
}

// Result turns an operation error into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrOptionResolution):
		return "option_unresolved"
	case errors.Is(err, domain.ErrNotSettled):
		return "not_settled"
	default:
		return "error"
	}
}

// The observe helpers accept a nil receiver so tests can run without a registry.

func (m *Metrics) ObserveOrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) ObserveLineMutation(op string, err error) {
	if m == nil {
		return
	}
	m.LineMutations.WithLabelValues(op, Result(err)).Inc()
}

func (m *Metrics) ObserveStatusChange(status domain.OrderStatus) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ObserveTableOperation(op string, err error) {
	if m == nil {
		return
	}
	m.TableOperations.WithLabelValues(op, Result(err)).Inc()
}
