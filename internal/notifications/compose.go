package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// ComposeOrderPlaced renders the staff email for a new order.
func ComposeOrderPlaced(event payloads.OrderPlacedEvent) (subject, body string) {
	customer := event.CustomerName
	if customer == "" {
		customer = event.Email
	}
	subject = fmt.Sprintf("New Order Placed by %s - Order #%s", customer, event.OrderID)

	var b strings.Builder
	b.WriteString("A new order has been placed.\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", event.OrderID)
	fmt.Fprintf(&b, "User: %s\n", customer)
	fmt.Fprintf(&b, "Email: %s\n", event.Email)
	fmt.Fprintf(&b, "Total Amount: %s\n", event.TotalAmount.StringFixed(2))
	if !event.PlacedAt.IsZero() {
		fmt.Fprintf(&b, "Placed At: %s\n", event.PlacedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("\nItems:\n")
	for _, item := range event.Items {
		fmt.Fprintf(&b, "- %s x %d @ %s", item.ProductName, item.Quantity, item.Price.StringFixed(2))
		if item.Size != nil && *item.Size != "" {
			fmt.Fprintf(&b, " (size %s)", *item.Size)
		}
		b.WriteString("\n")
	}

	if ship := event.ShipTo; ship != nil {
		b.WriteString("\nShip To:\n")
		fmt.Fprintf(&b, "%s, %s\n", ship.FullName, ship.PhoneNumber)
		b.WriteString(ship.AddressLine + "\n")
		if ship.Landmark != nil && *ship.Landmark != "" {
			fmt.Fprintf(&b, "Landmark: %s\n", *ship.Landmark)
		}
		fmt.Fprintf(&b, "%s, %s - %s\n", ship.City, ship.State, ship.Pincode)
	}
	return subject, b.String()
}
