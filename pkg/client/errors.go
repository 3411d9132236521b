package client

// NetworkError is the closed set of failures the executor reports.
type NetworkError struct {
	Code string
}

func (e *NetworkError) Error() string {
	return "network: " + e.Code
}

var (
	ErrInvalidURL          = &NetworkError{Code: "invalid_url"}
	ErrBadRequest          = &NetworkError{Code: "bad_request"}
	ErrInternalServerError = &NetworkError{Code: "internal_server_error"}
	// ErrRequestTimedOut is part of the taxonomy but no status path produces it.
	ErrRequestTimedOut = &NetworkError{Code: "request_timed_out"}
	ErrParsing         = &NetworkError{Code: "parsing_error"}
	// ErrImageCreation is unused by the weather flow.
	ErrImageCreation = &NetworkError{Code: "image_creation_error"}
	ErrNoData        = &NetworkError{Code: "no_data"}
)

// AllNetworkErrors lists every member of the taxonomy.
func AllNetworkErrors() []*NetworkError {
	return []*NetworkError{
		ErrInvalidURL,
		ErrBadRequest,
		ErrInternalServerError,
		ErrRequestTimedOut,
		ErrParsing,
		ErrImageCreation,
		ErrNoData,
	}
}

// classifyStatus maps a status code to nil (decode) or a taxonomy member.
// The success range is 200...300 inclusive.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code <= 300:
		return nil
	case code >= 500 && code <= 599:
		return ErrInternalServerError
	default:
		return ErrBadRequest
	}
}
