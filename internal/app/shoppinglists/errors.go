package shoppinglists

import "fmt"

// ErrorKind is the closed set of access-layer failures.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindForbidden      ErrorKind = "FORBIDDEN"
	KindDuplicateTitle ErrorKind = "DUPLICATE_TITLE"
	KindInvalidUUID    ErrorKind = "INVALID_UUID"
	KindDatabase       ErrorKind = "DATABASE_ERROR"
)

// Kinds lists every ErrorKind; boundary mappers are tested against it.
var Kinds = []ErrorKind{KindNotFound, KindForbidden, KindDuplicateTitle, KindInvalidUUID, KindDatabase}

// Error is an access-layer error. Message is safe to show to users; Err is for logs.
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
	msgListNotFound   = "Nie znaleziono listy zakupów"
	msgItemNotFound   = "Nie znaleziono produktu na liście"
	msgForbidden      = "Brak uprawnień do tej listy zakupów"
	msgDuplicateTitle = "Lista o tej nazwie już istnieje"
	msgInvalidUUID    = "Nieprawidłowy identyfikator"
	msgDatabase       = "Wystąpił błąd bazy danych"
)

func listNotFound() *Error { return &Error{Kind: KindNotFound, Message: msgListNotFound} }

func itemNotFound() *Error { return &Error{Kind: KindNotFound, Message: msgItemNotFound} }

func invalidUUID(field string) *Error {
	return &Error{Kind: KindInvalidUUID, Message: msgInvalidUUID, Err: fmt.Errorf("%s is not a UUID", field)}
}

func databaseError(op string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: msgDatabase, Err: fmt.Errorf("%s: %w", op, err)}
}
