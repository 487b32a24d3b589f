package enums

// APITokenStatus maps to api_tokens.status.
type APITokenStatus string

const (
	APITokenActive  APITokenStatus = "ativo"
	APITokenRevoked APITokenStatus = "revogado"
)

var validAPITokenStatuses = []APITokenStatus{
	APITokenActive,
	APITokenRevoked,
}

// String implements fmt.Stringer.
func (a APITokenStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known APITokenStatus.
func (a APITokenStatus) IsValid() bool {
	for _, candidate := range validAPITokenStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
