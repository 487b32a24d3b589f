package enums

// RecurrenceStatus is the local view of a recurring PIX authorization (pix_recorrencia_status).
type RecurrenceStatus string

const (
	RecurrenceActive                RecurrenceStatus = "ativa"
	RecurrenceRejected              RecurrenceStatus = "rejeitada"
	RecurrenceCancelled             RecurrenceStatus = "cancelada"
	RecurrenceChargeFailed          RecurrenceStatus = "falha_cobranca"
	RecurrenceAwaitingAuthorization RecurrenceStatus = "aguardando_autorizacao"
)

var validRecurrenceStatuses = []RecurrenceStatus{
	RecurrenceActive,
	RecurrenceRejected,
	RecurrenceCancelled,
	RecurrenceChargeFailed,
	RecurrenceAwaitingAuthorization,
}

// String implements fmt.Stringer.
func (r RecurrenceStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecurrenceStatus.
func (r RecurrenceStatus) IsValid() bool {
	for _, candidate := range validRecurrenceStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}
