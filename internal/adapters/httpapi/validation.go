package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads and validates a request body. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "Nieprawidłowy format JSON"
		if errors.Is(err, io.EOF) {
			msg = "Brak treści żądania"
		}
		writeError(w, r, http.StatusBadRequest, CodeValidation, msg, nil)
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, msgValidation, validationDetails(err))
		return false
	}
	return true
}

// normalizer is implemented by request bodies that trim fields before validation.
type normalizer interface {
	normalize()
}

func validationDetails(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return map[string]string{"body": msgValidation}
	}
	out := make(map[string]string, len(ves))
	for _, fe := range ves {
		out[fe.Field()] = fieldMessage(fe.Tag(), fe.Param())
	}
	return out
}

// validationDetailsFor renders the first failure of a single-value validation.
func validationDetailsFor(err error) string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return fieldMessage(ves[0].Tag(), ves[0].Param())
	}
	return "Nieprawidłowa wartość"
}

func fieldMessage(tag, param string) string {
	switch tag {
	case "required":
		return "Pole jest wymagane"
	case "email":
		return "Nieprawidłowy adres email"
	case "min":
		return fmt.Sprintf("Minimalna długość to %s znaków", param)
	case "max":
		return fmt.Sprintf("Maksymalna długość to %s znaków", param)
	default:
		return "Nieprawidłowa wartość"
	}
}
