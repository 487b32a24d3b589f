package enums

import "fmt"

// DeliveryStatus tracks a delivery through the route.
type DeliveryStatus string

const (
	DeliveryStatusWaiting   DeliveryStatus = "aguardando"
	DeliveryStatusInRoute   DeliveryStatus = "em_rota"
	DeliveryStatusDelivered DeliveryStatus = "entregue"
	DeliveryStatusCancelled DeliveryStatus = "cancelado"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusWaiting,
	DeliveryStatusInRoute,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
