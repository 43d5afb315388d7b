package protocol

import "errors"

const (
	// Load-time validation.
	ErrCodeBadTemplate = "E_BAD_TEMPLATE"
	ErrCodeBadNumber   = "E_BAD_NUMBER"
	ErrCodeBadConfig   = "E_BAD_CONFIG"

	// World routing/state.
	ErrCodeCountryNotFound = "E_COUNTRY_NOT_FOUND"
	ErrCodeNoQuality       = "E_NO_QUALITY"

	// Rule/action layer.
	ErrCodeBadRequest = "E_BAD_REQUEST"
	ErrCodeNoResource = "E_NO_RESOURCE"
)

// Error is a coded sentinel. Wrap it with fmt.Errorf("%w: ...") to add
// context; errors.Is matches on the code.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return e.Msg
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrInsufficientResources is expected during search: the candidate is
	// not affordable and is dropped.
	ErrInsufficientResources = &Error{Code: ErrCodeNoResource, Msg: "insufficient resources"}

	ErrCountryNotFound     = &Error{Code: ErrCodeCountryNotFound, Msg: "country not found"}
	ErrNoQualityFunction   = &Error{Code: ErrCodeNoQuality, Msg: "no quality function attached"}
	ErrMalformedTemplate   = &Error{Code: ErrCodeBadTemplate, Msg: "malformed template"}
	ErrInvalidNumericField = &Error{Code: ErrCodeBadNumber, Msg: "invalid numeric field"}
	ErrInvalidArgument     = &Error{Code: ErrCodeBadRequest, Msg: "invalid argument"}
	ErrInvalidConfig       = &Error{Code: ErrCodeBadConfig, Msg: "invalid config"}
)

var knownCodes = map[string]struct{}{
	ErrCodeBadTemplate:     {},
	ErrCodeBadNumber:       {},
	ErrCodeBadConfig:       {},
	ErrCodeCountryNotFound: {},
	ErrCodeNoQuality:       {},
	ErrCodeBadRequest:      {},
	ErrCodeNoResource:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Code extracts the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
