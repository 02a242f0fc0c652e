package httpapi

import (
	"log/slog"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/app/productparse"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
)

// Server holds the route handlers. Nil services make their routes answer 500.
type Server struct {
	Lists   *shoppinglists.Service
	Auth    *auth.Service
	Parser  *productparse.Service
	Idem    idempotency.Store
	Cookies CookieOptions
	Log     *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type userDTO struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	CreatedAt   *time.Time `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	IsAdmin     bool       `json:"isAdmin"`
}

type sessionUserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listDetailsDTO struct {
	listDTO
	Items []itemDTO `json:"items"`
}

type itemDTO struct {
	ID             string    `json:"id"`
	ShoppingListID string    `json:"shoppingListId"`
	ItemName       string    `json:"itemName"`
	Purchased      bool      `json:"purchased"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type productDTO struct {
	Name string `json:"name"`
}

func userFromDomain(u domain.User) userDTO {
	out := userDTO{ID: string(u.ID), Email: u.Email, IsAdmin: u.IsAdmin, LastLoginAt: u.LastLoginAt}
	if !u.CreatedAt.IsZero() {
		c := u.CreatedAt
		out.CreatedAt = &c
	}
	return out
}

func listFromDomain(l domain.ShoppingList) listDTO {
	return listDTO{
		ID:        string(l.ID),
		Title:     l.Title,
		UserID:    string(l.OwnerID),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func itemFromDomain(it domain.ShoppingListItem) itemDTO {
	return itemDTO{
		ID:             string(it.ID),
		ShoppingListID: string(it.ListID),
		ItemName:       it.Name,
		Purchased:      it.Purchased,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

func itemsFromDomain(its []domain.ShoppingListItem) []itemDTO {
	out := make([]itemDTO, 0, len(its))
	for _, it := range its {
		out = append(out, itemFromDomain(it))
	}
	return out
}
