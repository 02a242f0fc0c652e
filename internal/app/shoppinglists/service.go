package shoppinglists

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/clock"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
)

// Service is the shopping-list access layer. Every operation is scoped to the calling
// user: a list owned by someone else is reported exactly like a missing one.
type Service struct {
	repo  listrepo.Repository
	clock clock.Clock

	newListID func() domain.ListID
	newItemID func() domain.ItemID
}

func NewService(repo listrepo.Repository, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		clock: clk,
		newListID: func() domain.ListID {
			return domain.ListID(uuid.NewString())
		},
		newItemID: func() domain.ItemID {
			return domain.ItemID(uuid.NewString())
		},
	}
}

// SetIDGeneratorsForTest overrides id generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetIDGeneratorsForTest(list func() domain.ListID, item func() domain.ItemID) {
	if list != nil {
		s.newListID = list
	}
	if item != nil {
		s.newItemID = item
	}
}

func (s *Service) CreateList(ctx context.Context, caller domain.UserID, title string) (domain.ShoppingList, error) {
	now := s.clock.Now().UTC()
	l := listrepo.List{
		ID:        s.newListID(),
		OwnerID:   caller,
		Title:     domain.NormalizeTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateList(ctx, l); err != nil {
		return domain.ShoppingList{}, mapListErr("create list", err)
	}
	return toDomainList(l), nil
}

func (s *Service) GetListByID(ctx context.Context, caller domain.UserID, listID domain.ListID) (domain.ShoppingList, error) {
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	return toDomainList(l), nil
}

func (s *Service) ListMyLists(ctx context.Context, caller domain.UserID) ([]domain.ShoppingList, error) {
	ls, err := s.repo.ListByOwner(ctx, caller)
	if err != nil {
		return nil, mapListErr("list lists", err)
	}
	out := make([]domain.ShoppingList, 0, len(ls))
	for _, l := range ls {
		out = append(out, toDomainList(l))
	}
	return out, nil
}

func (s *Service) GetListWithItems(ctx context.Context, caller domain.UserID, listID domain.ListID) (domain.ShoppingListDetails, error) {
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return domain.ShoppingListDetails{}, err
	}
	items, err := s.items(ctx, l.ID)
	if err != nil {
		return domain.ShoppingListDetails{}, err
	}
	return domain.ShoppingListDetails{ShoppingList: toDomainList(l), Items: items}, nil
}

func (s *Service) UpdateListTitle(ctx context.Context, caller domain.UserID, listID domain.ListID, title string) (domain.ShoppingList, error) {
	if err := checkUUID("listId", string(listID)); err != nil {
		return domain.ShoppingList{}, err
	}
	l, err := s.repo.UpdateListTitle(ctx, caller, listID, domain.NormalizeTitle(title), s.clock.Now().UTC())
	if err != nil {
		return domain.ShoppingList{}, mapListErr("update list title", err)
	}
	return toDomainList(l), nil
}

func (s *Service) DeleteList(ctx context.Context, caller domain.UserID, listID domain.ListID) error {
	if err := checkUUID("listId", string(listID)); err != nil {
		return err
	}
	if err := s.repo.DeleteList(ctx, caller, listID); err != nil {
		return mapListErr("delete list", err)
	}
	return nil
}

func (s *Service) ListItems(ctx context.Context, caller domain.UserID, listID domain.ListID) ([]domain.ShoppingListItem, error) {
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return nil, err
	}
	return s.items(ctx, l.ID)
}

// AddItemToList checks ownership and then inserts; the two steps are not atomic.
func (s *Service) AddItemToList(ctx context.Context, caller domain.UserID, listID domain.ListID, in AddItemInput) (domain.ShoppingListItem, error) {
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return domain.ShoppingListItem{}, err
	}
	now := s.clock.Now().UTC()
	it := listrepo.Item{
		ID:        s.newItemID(),
		ListID:    l.ID,
		Name:      domain.NormalizeTitle(in.Name),
		Purchased: in.Purchased,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.AddItem(ctx, it); err != nil {
		// The list may have been deleted between the ownership read and the insert.
		return domain.ShoppingListItem{}, mapListErr("add item", err)
	}
	return toDomainItem(it), nil
}

func (s *Service) UpdateShoppingListItem(ctx context.Context, caller domain.UserID, listID domain.ListID, itemID domain.ItemID, p ItemPatch) (domain.ShoppingListItem, error) {
	if err := checkUUID("itemId", string(itemID)); err != nil {
		return domain.ShoppingListItem{}, err
	}
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return domain.ShoppingListItem{}, err
	}
	patch := listrepo.ItemPatch{Purchased: p.Purchased, UpdatedAt: s.clock.Now().UTC()}
	if p.Name != nil {
		name := domain.NormalizeTitle(*p.Name)
		patch.Name = &name
	}
	it, err := s.repo.UpdateItem(ctx, l.ID, itemID, patch)
	if err != nil {
		return domain.ShoppingListItem{}, mapItemErr("update item", err)
	}
	return toDomainItem(it), nil
}

func (s *Service) DeleteShoppingListItem(ctx context.Context, caller domain.UserID, listID domain.ListID, itemID domain.ItemID) error {
	if err := checkUUID("itemId", string(itemID)); err != nil {
		return err
	}
	l, err := s.ownedList(ctx, caller, listID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, l.ID, itemID); err != nil {
		return mapItemErr("delete item", err)
	}
	return nil
}

func (s *Service) ownedList(ctx context.Context, caller domain.UserID, listID domain.ListID) (listrepo.List, error) {
	if err := checkUUID("listId", string(listID)); err != nil {
		return listrepo.List{}, err
	}
	l, err := s.repo.GetList(ctx, caller, listID)
	if err != nil {
		return listrepo.List{}, mapListErr("get list", err)
	}
	return l, nil
}

func (s *Service) items(ctx context.Context, listID domain.ListID) ([]domain.ShoppingListItem, error) {
	its, err := s.repo.ListItems(ctx, listID)
	if err != nil {
		return nil, mapItemErr("list items", err)
	}
	out := make([]domain.ShoppingListItem, 0, len(its))
	for _, it := range its {
		out = append(out, toDomainItem(it))
	}
	return out, nil
}

func checkUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return invalidUUID(field)
	}
	return nil
}

func mapListErr(op string, err error) error {
	switch {
	case errors.Is(err, listrepo.ErrNotFound):
		return listNotFound()
	case errors.Is(err, listrepo.ErrDuplicateTitle):
		return &Error{Kind: KindDuplicateTitle, Message: msgDuplicateTitle}
	case errors.Is(err, listrepo.ErrPermissionDenied):
		return &Error{Kind: KindForbidden, Message: msgForbidden, Err: err}
	default:
		return databaseError(op, err)
	}
}

func mapItemErr(op string, err error) error {
	if errors.Is(err, listrepo.ErrNotFound) {
		return itemNotFound()
	}
	return mapListErr(op, err)
}

func toDomainList(l listrepo.List) domain.ShoppingList {
	return domain.ShoppingList{
		ID:        l.ID,
		OwnerID:   l.OwnerID,
		Title:     l.Title,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func toDomainItem(it listrepo.Item) domain.ShoppingListItem {
	return domain.ShoppingListItem{
		ID:        it.ID,
		ListID:    it.ListID,
		Name:      it.Name,
		Purchased: it.Purchased,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}
