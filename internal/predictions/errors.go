package predictions

import (
	"errors"
	"fmt"
)

// Kind тип ошибки получения прогноза
type Kind int

const (
	// Transport сеть недоступна, неуспешный HTTP статус или неразбираемый ответ
	Transport Kind = iota
	// ServerReported бэкенд сам сообщил об ошибке через флаг success
	ServerReported
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case ServerReported:
		return "server_reported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DefaultServerMessage текст, если бэкенд не прислал сообщение об ошибке
const DefaultServerMessage = "Не удалось получить прогноз. Попробуйте позже."

// FetchError ошибка получения прогноза
type FetchError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func transportError(detail string, err error) *FetchError {
	return &FetchError{Kind: Transport, Detail: detail, Err: err}
}

func serverError(message string) *FetchError {
	if message == "" {
		message = DefaultServerMessage
	}
	return &FetchError{Kind: ServerReported, Detail: message}
}

// AsFetchError извлекает FetchError из цепочки ошибок
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
