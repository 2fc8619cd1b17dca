package orders

import "github.com/angelmondragon/storefront-backend/pkg/enums"

// Step states.
const (
	StepCompleted = "completed"
	StepActive    = "active"
	StepPending   = "pending"
	StepCancelled = "cancelled"
)

// TimelineStep is one entry of the order progress tracker.
type TimelineStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

var fulfilmentSteps = []enums.OrderStatus{
	enums.OrderStatusPlaced,
	enums.OrderStatusShipped,
	enums.OrderStatusDelivered,
}

// BuildTimeline renders the tracker for status.
func BuildTimeline(status enums.OrderStatus) []TimelineStep {
	if status == enums.OrderStatusCancelled {
		return []TimelineStep{
			{Name: "Pending", Status: StepCompleted},
			{Name: string(enums.OrderStatusPlaced), Status: StepCompleted},
			{Name: string(enums.OrderStatusCancelled), Status: StepCancelled},
		}
	}

	current := -1
	for i, step := range fulfilmentSteps {
		if step == status {
			current = i
			break
		}
	}

	steps := make([]TimelineStep, 0, len(fulfilmentSteps))
	for i, step := range fulfilmentSteps {
		state := StepPending
		switch {
		case i == current:
			state = StepActive
		case i < current:
			state = StepCompleted
		}
		steps = append(steps, TimelineStep{Name: string(step), Status: state})
	}
	return steps
}
