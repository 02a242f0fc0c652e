package listrepo

import (
	"context"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
)

// List is the persistence shape used by the list repository.
// It is not an HTTP DTO.
type List struct {
	ID      domain.ListID
	OwnerID domain.UserID
	Title   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is the persistence shape of a shopping list item.
type Item struct {
	ID        domain.ItemID
	ListID    domain.ListID
	Name      string
	Purchased bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemPatch carries the fields to change on an item; nil means "leave as is".
type ItemPatch struct {
	Name      *string
	Purchased *bool
	UpdatedAt time.Time
}

// Repository provides access to persisted lists and items.
//
// List reads and writes are scoped by owner: a list owned by someone else behaves exactly
// like a missing one (ErrNotFound). Item methods are scoped by list id only; callers must
// verify list ownership first.
//
// Result ordering expectations:
// - ListByOwner returns lists by CreatedAt descending, ties broken by ID.
// - ListItems returns items by CreatedAt ascending, ties broken by ID.
type Repository interface {
	CreateList(ctx context.Context, l List) error
	GetList(ctx context.Context, owner domain.UserID, id domain.ListID) (List, error)
	ListByOwner(ctx context.Context, owner domain.UserID) ([]List, error)
	UpdateListTitle(ctx context.Context, owner domain.UserID, id domain.ListID, title string, at time.Time) (List, error)
	DeleteList(ctx context.Context, owner domain.UserID, id domain.ListID) error

	ListItems(ctx context.Context, listID domain.ListID) ([]Item, error)
	AddItem(ctx context.Context, it Item) error
	UpdateItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID, p ItemPatch) (Item, error)
	DeleteItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID) error
}
