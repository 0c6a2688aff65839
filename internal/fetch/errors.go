package fetch

import (
	"errors"
	"fmt"
)

// Kind classifica falhas de fetch pro chamador decidir o que mostrar
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindNoData
	KindDecodeFailure
	KindServerError
	KindUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNoData:
		return "no_data"
	case KindDecodeFailure:
		return "decode_failure"
	case KindServerError:
		return "server_error"
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error é o erro tipado devolvido pelos clients de fetch.
// StatusCode só é preenchido em KindServerError; Cause em KindDecodeFailure.
type Error struct {
	Kind       Kind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerError:
		return fmt.Sprintf("fetch: server error (status %d)", e.StatusCode)
	case KindDecodeFailure:
		return fmt.Sprintf("fetch: decode failure: %v", e.Cause)
	default:
		return "fetch: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf extrai o Kind de um erro qualquer (Unknown se não for *Error)
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
