package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
)

// pathUUID binds a UUID path parameter. Malformed values are written as INVALID_UUID.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, string(shoppinglists.KindInvalidUUID), "Nieprawidłowy identyfikator", map[string]string{name: "Wymagany identyfikator UUID"})
		return "", false
	}
	return id.String(), true
}
