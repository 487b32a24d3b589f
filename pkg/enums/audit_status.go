package enums

// AuditStatus is the outcome recorded on system_audit_logs.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditWarning AuditStatus = "warning"
	AuditError   AuditStatus = "error"
)

var validAuditStatuses = []AuditStatus{
	AuditSuccess,
	AuditWarning,
	AuditError,
}

// String implements fmt.Stringer.
func (a AuditStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditStatus.
func (a AuditStatus) IsValid() bool {
	for _, candidate := range validAuditStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
