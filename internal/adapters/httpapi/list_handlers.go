package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/domain"
)

type listTitleRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

func (r *listTitleRequest) normalize() { r.Title = domain.NormalizeTitle(r.Title) }

type addItemRequest struct {
	ItemName  string `json:"itemName" validate:"required,max=128"`
	Purchased *bool  `json:"purchased"`
}

func (r *addItemRequest) normalize() { r.ItemName = domain.NormalizeTitle(r.ItemName) }

// updateItemRequest distinguishes absent fields from explicit nulls; nulls are rejected.
type updateItemRequest struct {
	ItemName  nullable.Nullable[string] `json:"itemName"`
	Purchased nullable.Nullable[bool]   `json:"purchased"`
}

type aiParseRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (r *aiParseRequest) normalize() { r.Text = strings.TrimSpace(r.Text) }

var errListsNotConfigured = errors.New("shopping list service not configured")

// caller returns the authenticated user id; the middleware guarantees it on /api routes.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	ra, ok := AuthFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "", msgAuthRequired, nil)
		return "", false
	}
	if s.Lists == nil {
		writeInternal(w, r, s.Log, errListsNotConfigured)
		return "", false
	}
	return ra.User.ID, true
}

func (s *Server) listLists(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	ls, err := s.Lists.ListMyLists(r.Context(), uid)
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	out := make([]listDTO, 0, len(ls))
	for _, l := range ls {
		out = append(out, listFromDomain(l))
	}
	writeJSON(w, http.StatusOK, map[string][]listDTO{"lists": out})
}

func (s *Server) createList(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req listTitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := s.Lists.CreateList(r.Context(), uid, req.Title)
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, listFromDomain(l))
}

func (s *Server) getList(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	d, err := s.Lists.GetListWithItems(r.Context(), uid, domain.ListID(listID))
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, listDetailsDTO{listDTO: listFromDomain(d.ShoppingList), Items: itemsFromDomain(d.Items)})
}

func (s *Server) updateList(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	var req listTitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := s.Lists.UpdateListTitle(r.Context(), uid, domain.ListID(listID), req.Title)
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, listFromDomain(l))
}

func (s *Server) deleteList(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	if err := s.Lists.DeleteList(r.Context(), uid, domain.ListID(listID)); err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	its, err := s.Lists.ListItems(r.Context(), uid, domain.ListID(listID))
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]itemDTO{"items": itemsFromDomain(its)})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := shoppinglists.AddItemInput{Name: req.ItemName}
	if req.Purchased != nil {
		in.Purchased = *req.Purchased
	}
	it, err := s.Lists.AddItemToList(r.Context(), uid, domain.ListID(listID), in)
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemFromDomain(it))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, details := itemPatchFromRequest(req)
	if details != nil {
		writeError(w, r, http.StatusBadRequest, CodeValidation, msgValidation, details)
		return
	}
	it, err := s.Lists.UpdateShoppingListItem(r.Context(), uid, domain.ListID(listID), domain.ItemID(itemID), patch)
	if err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, itemFromDomain(it))
}

func itemPatchFromRequest(req updateItemRequest) (shoppinglists.ItemPatch, map[string]string) {
	var (
		p       shoppinglists.ItemPatch
		details = map[string]string{}
	)
	if req.ItemName.IsSpecified() {
		name, err := req.ItemName.Get()
		if err != nil {
			details["itemName"] = "Pole nie może być puste"
		} else {
			name = domain.NormalizeTitle(name)
			if err := validate.Var(name, "required,max=128"); err != nil {
				details["itemName"] = validationDetailsFor(err)
			} else {
				p.Name = &name
			}
		}
	}
	if req.Purchased.IsSpecified() {
		v, err := req.Purchased.Get()
		if err != nil {
			details["purchased"] = "Pole nie może być puste"
		} else {
			p.Purchased = &v
		}
	}
	if !req.ItemName.IsSpecified() && !req.Purchased.IsSpecified() {
		details["body"] = "Podaj itemName lub purchased"
	}
	if len(details) > 0 {
		return shoppinglists.ItemPatch{}, details
	}
	return p, nil
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	if err := s.Lists.DeleteShoppingListItem(r.Context(), uid, domain.ListID(listID), domain.ItemID(itemID)); err != nil {
		writeListError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) aiParse(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.caller(w, r)
	if !ok {
		return
	}
	listID, ok := pathUUID(w, r, "listId")
	if !ok {
		return
	}
	var req aiParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.Parser == nil {
		writeInternal(w, r, s.Log, errors.New("product parser not configured"))
		return
	}
	names, err := s.Parser.Parse(r.Context(), uid, domain.ListID(listID), req.Text)
	if err != nil {
		if errors.Is(err, productparse.ErrExtractionFailed) {
			s.Log.WarnContext(r.Context(), "product extraction failed", "err", err)
			writeError(w, r, http.StatusBadGateway, CodeBadGateway, msgBadGateway, nil)
			return
		}
		writeListError(w, r, s.Log, err)
		return
	}
	out := make([]productDTO, 0, len(names))
	for _, n := range names {
		out = append(out, productDTO{Name: n})
	}
	writeJSON(w, http.StatusOK, map[string][]productDTO{"products": out})
}
