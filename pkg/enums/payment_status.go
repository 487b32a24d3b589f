package enums

import "fmt"

// PaymentStatus maps to the payment_status enum shared by orders and deliveries.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pendente"
	PaymentStatusConfirmed PaymentStatus = "confirmado"
	PaymentStatusRefused   PaymentStatus = "recusado"
	PaymentStatusCancelled PaymentStatus = "cancelado"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusConfirmed,
	PaymentStatusRefused,
	PaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
