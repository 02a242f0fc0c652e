package listrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
)

// Repo is an in-memory implementation of listrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	lists map[domain.ListID]listrepo.List
	items map[domain.ListID]map[domain.ItemID]listrepo.Item
}

func NewRepo() *Repo {
	return &Repo{
		lists: make(map[domain.ListID]listrepo.List),
		items: make(map[domain.ListID]map[domain.ItemID]listrepo.Item),
	}
}

func (r *Repo) CreateList(ctx context.Context, l listrepo.List) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lists[l.ID]; ok {
		return listrepo.ErrDuplicateTitle
	}
	if r.titleTakenLocked(l.OwnerID, l.Title, "") {
		return listrepo.ErrDuplicateTitle
	}
	r.lists[l.ID] = l
	r.items[l.ID] = make(map[domain.ItemID]listrepo.Item)
	return nil
}

func (r *Repo) GetList(ctx context.Context, owner domain.UserID, id domain.ListID) (listrepo.List, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lists[id]
	if !ok || l.OwnerID != owner {
		return listrepo.List{}, listrepo.ErrNotFound
	}
	return l, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.UserID) ([]listrepo.List, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listrepo.List, 0)
	for _, l := range r.lists {
		if l.OwnerID == owner {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) UpdateListTitle(ctx context.Context, owner domain.UserID, id domain.ListID, title string, at time.Time) (listrepo.List, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lists[id]
	if !ok || l.OwnerID != owner {
		return listrepo.List{}, listrepo.ErrNotFound
	}
	if r.titleTakenLocked(owner, title, id) {
		return listrepo.List{}, listrepo.ErrDuplicateTitle
	}
	l.Title = title
	l.UpdatedAt = at
	r.lists[id] = l
	return l, nil
}

func (r *Repo) DeleteList(ctx context.Context, owner domain.UserID, id domain.ListID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lists[id]
	if !ok || l.OwnerID != owner {
		return listrepo.ErrNotFound
	}
	delete(r.lists, id)
	delete(r.items, id)
	return nil
}

func (r *Repo) ListItems(ctx context.Context, listID domain.ListID) ([]listrepo.Item, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID, ok := r.items[listID]
	if !ok {
		return []listrepo.Item{}, nil
	}
	out := make([]listrepo.Item, 0, len(byID))
	for _, it := range byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) AddItem(ctx context.Context, it listrepo.Item) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.items[it.ListID]
	if !ok {
		// Mirrors the foreign key on shopping_list_items.shopping_list_id.
		return listrepo.ErrNotFound
	}
	byID[it.ID] = it
	return nil
}

func (r *Repo) UpdateItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID, p listrepo.ItemPatch) (listrepo.Item, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[listID][itemID]
	if !ok {
		return listrepo.Item{}, listrepo.ErrNotFound
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Purchased != nil {
		it.Purchased = *p.Purchased
	}
	it.UpdatedAt = p.UpdatedAt
	r.items[listID][itemID] = it
	return it, nil
}

func (r *Repo) DeleteItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[listID][itemID]; !ok {
		return listrepo.ErrNotFound
	}
	delete(r.items[listID], itemID)
	return nil
}

func (r *Repo) titleTakenLocked(owner domain.UserID, title string, exclude domain.ListID) bool {
	for id, l := range r.lists {
		if id == exclude || l.OwnerID != owner {
			continue
		}
		if strings.EqualFold(l.Title, title) {
			return true
		}
	}
	return false
}
