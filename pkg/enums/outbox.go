package enums

// OutboxEventType enumerates the domain events the engine emits.
type OutboxEventType string

const (
	EventOrderCreated                OutboxEventType = "order.created"
	EventOrderPaid                   OutboxEventType = "order.paid"
	EventOrderStatusChanged          OutboxEventType = "order.status_changed"
	EventOrderCancelled              OutboxEventType = "order.cancelled"
	EventPaymentSessionCreated       OutboxEventType = "payment.session_created"
	EventPaymentReconciliationFailed OutboxEventType = "payment.reconciliation_failed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateParentOrder    OutboxAggregateType = "parent_order"
	AggregateSubOrder       OutboxAggregateType = "sub_order"
	AggregatePaymentSession OutboxAggregateType = "payment_session"
)
