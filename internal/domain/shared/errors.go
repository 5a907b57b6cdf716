// Package shared holds types used by more than one domain package.
package shared

// DomainError is a rule violation with a stable machine readable code. The
// HTTP layer maps codes to statuses; the message is safe to show callers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

// Is matches any DomainError with the same code, so callers can test
// errors.Is(err, shared.ErrInvalidCurrency) whatever the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

var ErrInvalidCurrency = NewDomainError("INVALID_CURRENCY", "Currency must be an ISO 4217 code")
