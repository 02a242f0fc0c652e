package domain

import "time"

const (
	// MaxListTitleLength is the maximum title length in characters (runes).
	MaxListTitleLength = 255
	// MaxItemNameLength is the maximum item name length in characters (runes).
	MaxItemNameLength = 128
)

// ShoppingList is owned by exactly one user.
type ShoppingList struct {
	ID      ListID
	OwnerID UserID
	Title   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShoppingListItem is a child of exactly one ShoppingList.
type ShoppingListItem struct {
	ID        ItemID
	ListID    ListID
	Name      string
	Purchased bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShoppingListDetails is a list together with its items.
type ShoppingListDetails struct {
	ShoppingList

	Items []ShoppingListItem
}
