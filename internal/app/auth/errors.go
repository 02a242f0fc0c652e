package auth

import "fmt"

type ErrorKind string

const (
	KindInvalidCredentials  ErrorKind = "INVALID_CREDENTIALS"
	KindRegistrationFailed  ErrorKind = "REGISTRATION_FAILED"
	KindInvalidToken        ErrorKind = "INVALID_TOKEN"
	KindProviderUnavailable ErrorKind = "PROVIDER_UNAVAILABLE"
)

// Error is an authentication failure. Message never reveals whether an account exists.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

const (
	MsgInvalidCredentials  = "Nieprawidłowy email lub hasło"
	MsgRegistrationFailed  = "Nie udało się utworzyć konta"
	MsgInvalidToken        = "Sesja wygasła lub jest nieprawidłowa"
	MsgProviderUnavailable = "Usługa uwierzytelniania jest chwilowo niedostępna"
	MsgResetRequested      = "Jeśli konto istnieje, wysłaliśmy link do zresetowania hasła"
)
