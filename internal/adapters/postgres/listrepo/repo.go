package listrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/shoplist-app/shoplist-api/internal/adapters/postgres"
	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
)

// Repo is a Postgres implementation of listrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) CreateList(ctx context.Context, l listrepo.List) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid list id: %w", err)
	}
	owner, err := uuid.Parse(string(l.OwnerID))
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO shopping_lists (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, owner, l.Title, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	return mapErr(err)
}

func (r *Repo) GetList(ctx context.Context, owner domain.UserID, id domain.ListID) (listrepo.List, error) {
	if r.pool == nil {
		return listrepo.List{}, postgres.ErrNilPool
	}
	lid, uid, ok := parseScope(owner, id)
	if !ok {
		return listrepo.List{}, listrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM shopping_lists
		WHERE id = $1 AND user_id = $2
	`, lid, uid)
	return scanList(row)
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.UserID) ([]listrepo.List, error) {
	if r.pool == nil {
		return nil, postgres.ErrNilPool
	}
	uid, err := uuid.Parse(string(owner))
	if err != nil {
		return []listrepo.List{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM shopping_lists
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
	`, uid)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []listrepo.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, mapErr(rows.Err())
}

func (r *Repo) UpdateListTitle(ctx context.Context, owner domain.UserID, id domain.ListID, title string, at time.Time) (listrepo.List, error) {
	if r.pool == nil {
		return listrepo.List{}, postgres.ErrNilPool
	}
	lid, uid, ok := parseScope(owner, id)
	if !ok {
		return listrepo.List{}, listrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE shopping_lists
		SET title = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, created_at, updated_at
	`, lid, uid, title, at.UTC())
	return scanList(row)
}

func (r *Repo) DeleteList(ctx context.Context, owner domain.UserID, id domain.ListID) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	lid, uid, ok := parseScope(owner, id)
	if !ok {
		return listrepo.ErrNotFound
	}
	// Items are removed by ON DELETE CASCADE.
	ct, err := r.pool.Exec(ctx, `DELETE FROM shopping_lists WHERE id = $1 AND user_id = $2`, lid, uid)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return listrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListItems(ctx context.Context, listID domain.ListID) ([]listrepo.Item, error) {
	if r.pool == nil {
		return nil, postgres.ErrNilPool
	}
	lid, err := uuid.Parse(string(listID))
	if err != nil {
		return []listrepo.Item{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, shopping_list_id, item_name, purchased, created_at, updated_at
		FROM shopping_list_items
		WHERE shopping_list_id = $1
		ORDER BY created_at ASC, id ASC
	`, lid)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []listrepo.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, mapErr(rows.Err())
}

func (r *Repo) AddItem(ctx context.Context, it listrepo.Item) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	id, err := uuid.Parse(string(it.ID))
	if err != nil {
		return fmt.Errorf("invalid item id: %w", err)
	}
	lid, err := uuid.Parse(string(it.ListID))
	if err != nil {
		return listrepo.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO shopping_list_items (id, shopping_list_id, item_name, purchased, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, lid, it.Name, it.Purchased, it.CreatedAt.UTC(), it.UpdatedAt.UTC())
	return mapErr(err)
}

func (r *Repo) UpdateItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID, p listrepo.ItemPatch) (listrepo.Item, error) {
	if r.pool == nil {
		return listrepo.Item{}, postgres.ErrNilPool
	}
	lid, err := uuid.Parse(string(listID))
	if err != nil {
		return listrepo.Item{}, listrepo.ErrNotFound
	}
	iid, err := uuid.Parse(string(itemID))
	if err != nil {
		return listrepo.Item{}, listrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET item_name = COALESCE($3, item_name),
		    purchased = COALESCE($4, purchased),
		    updated_at = $5
		WHERE id = $2 AND shopping_list_id = $1
		RETURNING id, shopping_list_id, item_name, purchased, created_at, updated_at
	`, lid, iid, p.Name, p.Purchased, p.UpdatedAt.UTC())
	return scanItem(row)
}

func (r *Repo) DeleteItem(ctx context.Context, listID domain.ListID, itemID domain.ItemID) error {
	if r.pool == nil {
		return postgres.ErrNilPool
	}
	lid, err := uuid.Parse(string(listID))
	if err != nil {
		return listrepo.ErrNotFound
	}
	iid, err := uuid.Parse(string(itemID))
	if err != nil {
		return listrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM shopping_list_items WHERE id = $2 AND shopping_list_id = $1`, lid, iid)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return listrepo.ErrNotFound
	}
	return nil
}

func parseScope(owner domain.UserID, id domain.ListID) (uuid.UUID, uuid.UUID, bool) {
	lid, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	uid, err := uuid.Parse(string(owner))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return lid, uid, true
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return listrepo.ErrNotFound
	}
	if pe, ok := postgres.AsPgError(err); ok {
		switch pe.Code {
		case postgres.UniqueViolationCode:
			if pe.ConstraintName == "shopping_lists_user_title_unique" {
				return listrepo.ErrDuplicateTitle
			}
		case postgres.ForeignKeyViolationCode:
			return listrepo.ErrNotFound
		case postgres.InsufficientPrivilegeCode:
			return fmt.Errorf("%w: %s", listrepo.ErrPermissionDenied, pe.Message)
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanList(row scanner) (listrepo.List, error) {
	var (
		id, owner uuid.UUID
		l         listrepo.List
	)
	if err := row.Scan(&id, &owner, &l.Title, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return listrepo.List{}, mapErr(err)
	}
	l.ID = domain.ListID(id.String())
	l.OwnerID = domain.UserID(owner.String())
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l, nil
}

func scanItem(row scanner) (listrepo.Item, error) {
	var (
		id, listID uuid.UUID
		it         listrepo.Item
	)
	if err := row.Scan(&id, &listID, &it.Name, &it.Purchased, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return listrepo.Item{}, mapErr(err)
	}
	it.ID = domain.ItemID(id.String())
	it.ListID = domain.ListID(listID.String())
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return it, nil
}
