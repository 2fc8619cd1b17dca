package enums

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "Placed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return known(orderStatuses, s) }

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Orders move forward along Placed -> Shipped -> Delivered and may be
// cancelled until they are delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsValid() || s.IsTerminal() || s == next {
		return false
	}
	switch next {
	case OrderStatusCancelled:
		return true
	case OrderStatusShipped:
		return s == OrderStatusPlaced
	case OrderStatusDelivered:
		return s == OrderStatusShipped
	}
	return false
}

// ParseOrderStatus matches case-insensitively, so query strings like
// ?status=shipped work.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(orderStatuses, value, "order status", true)
}
