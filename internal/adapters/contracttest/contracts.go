package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplist-app/shoplist-api/internal/domain"
	idempotencyport "github.com/shoplist-app/shoplist-api/internal/ports/out/idempotency"
	listrepoport "github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
	sessionstoreport "github.com/shoplist-app/shoplist-api/internal/ports/out/sessionstore"
	userstoreport "github.com/shoplist-app/shoplist-api/internal/ports/out/userstore"
)

type CleanupFunc = func()

type ListRepoFactory func(t *testing.T) (listrepoport.Repository, CleanupFunc)
type UserStoreFactory func(t *testing.T) (userstoreport.Store, CleanupFunc)
type SessionStoreFactory func(t *testing.T) (sessionstoreport.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		UserID:   domain.UserID(uuid.NewString()),
		Method:   "POST",
		Route:    "/api/client/shopping-lists/create",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v, want ok=false", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Records are isolated per user.
	other := fp
	other.UserID = domain.UserID(uuid.NewString())
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other user: ok=%v err=%v, want ok=false", ok, err)
	}
}

func RunListRepo(t *testing.T, newRepo ListRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	owner := domain.UserID(uuid.NewString())
	stranger := domain.UserID(uuid.NewString())

	older := listrepoport.List{
		ID:        domain.ListID(uuid.NewString()),
		OwnerID:   owner,
		Title:     "Weekly groceries",
		CreatedAt: now,
		UpdatedAt: now,
	}
	newer := listrepoport.List{
		ID:        domain.ListID(uuid.NewString()),
		OwnerID:   owner,
		Title:     "Party",
		CreatedAt: now.Add(time.Minute),
		UpdatedAt: now.Add(time.Minute),
	}
	for _, l := range []listrepoport.List{older, newer} {
		if err := repo.CreateList(ctx, l); err != nil {
			t.Fatalf("CreateList(%s): %v", l.Title, err)
		}
	}

	// Title uniqueness per owner, case-insensitive.
	err := repo.CreateList(ctx, listrepoport.List{
		ID:        domain.ListID(uuid.NewString()),
		OwnerID:   owner,
		Title:     "weekly GROCERIES",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, listrepoport.ErrDuplicateTitle) {
		t.Fatalf("CreateList duplicate err=%v, want ErrDuplicateTitle", err)
	}
	// Another owner may reuse the title.
	if err := repo.CreateList(ctx, listrepoport.List{
		ID:        domain.ListID(uuid.NewString()),
		OwnerID:   stranger,
		Title:     "Weekly groceries",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateList other owner: %v", err)
	}

	// Owner scoping.
	if _, err := repo.GetList(ctx, owner, older.ID); err != nil {
		t.Fatalf("GetList owner: %v", err)
	}
	if _, err := repo.GetList(ctx, stranger, older.ID); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("GetList stranger err=%v, want ErrNotFound", err)
	}
	if _, err := repo.UpdateListTitle(ctx, stranger, older.ID, "Hijacked", now); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("UpdateListTitle stranger err=%v, want ErrNotFound", err)
	}
	if err := repo.DeleteList(ctx, stranger, older.ID); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("DeleteList stranger err=%v, want ErrNotFound", err)
	}

	// Ordering: newest first.
	ls, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(ls) != 2 || ls[0].ID != newer.ID || ls[1].ID != older.ID {
		t.Fatalf("unexpected ListByOwner result: %#v", ls)
	}

	// Title update, including duplicate detection.
	if _, err := repo.UpdateListTitle(ctx, owner, newer.ID, "WEEKLY groceries", now); !errors.Is(err, listrepoport.ErrDuplicateTitle) {
		t.Fatalf("UpdateListTitle duplicate err=%v, want ErrDuplicateTitle", err)
	}
	renamedAt := now.Add(time.Hour)
	renamed, err := repo.UpdateListTitle(ctx, owner, newer.ID, "Birthday party", renamedAt)
	if err != nil {
		t.Fatalf("UpdateListTitle: %v", err)
	}
	if renamed.Title != "Birthday party" || !renamed.UpdatedAt.Equal(renamedAt) {
		t.Fatalf("unexpected renamed list: %#v", renamed)
	}
	// Renaming to its own title (different case) is allowed.
	if _, err := repo.UpdateListTitle(ctx, owner, newer.ID, "birthday party", renamedAt); err != nil {
		t.Fatalf("UpdateListTitle same title: %v", err)
	}

	// Items.
	milk := listrepoport.Item{
		ID:        domain.ItemID(uuid.NewString()),
		ListID:    older.ID,
		Name:      "Milk",
		CreatedAt: now,
		UpdatedAt: now,
	}
	bread := listrepoport.Item{
		ID:        domain.ItemID(uuid.NewString()),
		ListID:    older.ID,
		Name:      "Bread",
		Purchased: true,
		CreatedAt: now.Add(time.Second),
		UpdatedAt: now.Add(time.Second),
	}
	for _, it := range []listrepoport.Item{milk, bread} {
		if err := repo.AddItem(ctx, it); err != nil {
			t.Fatalf("AddItem(%s): %v", it.Name, err)
		}
	}
	items, err := repo.ListItems(ctx, older.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 || items[0].ID != milk.ID || items[0].Purchased || !items[1].Purchased {
		t.Fatalf("unexpected items: %#v", items)
	}

	purchased := true
	updated, err := repo.UpdateItem(ctx, older.ID, milk.ID, listrepoport.ItemPatch{Purchased: &purchased, UpdatedAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if !updated.Purchased || updated.Name != "Milk" {
		t.Fatalf("unexpected updated item: %#v", updated)
	}

	// Item scoping by list id.
	if _, err := repo.UpdateItem(ctx, newer.ID, milk.ID, listrepoport.ItemPatch{Purchased: &purchased, UpdatedAt: now}); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("UpdateItem wrong list err=%v, want ErrNotFound", err)
	}
	if err := repo.DeleteItem(ctx, newer.ID, milk.ID); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("DeleteItem wrong list err=%v, want ErrNotFound", err)
	}
	if err := repo.DeleteItem(ctx, older.ID, bread.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	// Cascade on list deletion.
	if err := repo.DeleteList(ctx, owner, older.ID); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	if _, err := repo.GetList(ctx, owner, older.ID); !errors.Is(err, listrepoport.ErrNotFound) {
		t.Fatalf("GetList after delete err=%v, want ErrNotFound", err)
	}
	items, err = repo.ListItems(ctx, older.ID)
	if err != nil {
		t.Fatalf("ListItems after delete: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected items to cascade, got %#v", items)
	}
}

func RunUserStore(t *testing.T, newStore UserStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	email := "ala-" + uuid.NewString()[:8] + "@example.com"
	u := userstoreport.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: []byte("hash-1"),
		CreatedAt:    now,
	}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := u
	dup.ID = domain.UserID(uuid.NewString())
	if err := store.Create(ctx, dup); !errors.Is(err, userstoreport.ErrEmailTaken) {
		t.Fatalf("Create duplicate err=%v, want ErrEmailTaken", err)
	}

	got, err := store.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != u.ID || string(got.PasswordHash) != "hash-1" || got.LastLoginAt != nil {
		t.Fatalf("unexpected user: %#v", got)
	}
	if _, err := store.GetByEmail(ctx, "missing-"+email); !errors.Is(err, userstoreport.ErrNotFound) {
		t.Fatalf("GetByEmail missing err=%v, want ErrNotFound", err)
	}

	loginAt := now.Add(time.Hour)
	if err := store.TouchLastLogin(ctx, u.ID, loginAt); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	if err := store.UpdatePasswordHash(ctx, u.ID, []byte("hash-2")); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, err = store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(loginAt) || string(got.PasswordHash) != "hash-2" {
		t.Fatalf("unexpected user after updates: %#v", got)
	}
}

// RunSessionStore uses real time for expiry because external stores (Redis) expire on their own clock.
func RunSessionStore(t *testing.T, newStore SessionStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	token := uuid.NewString()
	rec := sessionstoreport.Record{
		UserID:    domain.UserID(uuid.NewString()),
		Kind:      sessionstoreport.KindAccess,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
		Pair:      uuid.NewString(),
	}
	if err := store.Put(ctx, token, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, token)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.UserID != rec.UserID || got.Kind != rec.Kind || got.Pair != rec.Pair {
		t.Fatalf("unexpected record: %#v", got)
	}

	expired := uuid.NewString()
	if err := store.Put(ctx, expired, sessionstoreport.Record{
		UserID:    rec.UserID,
		Kind:      sessionstoreport.KindRefresh,
		ExpiresAt: time.Now().Add(-time.Minute).UTC(),
	}); err != nil {
		t.Fatalf("Put expired: %v", err)
	}
	if _, ok, err := store.Get(ctx, expired); err != nil || ok {
		t.Fatalf("Get expired: ok=%v err=%v, want ok=false", ok, err)
	}

	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, token); err != nil || ok {
		t.Fatalf("Get after delete: ok=%v err=%v, want ok=false", ok, err)
	}
	// Deleting an unknown token is not an error.
	if err := store.Delete(ctx, uuid.NewString()); err != nil {
		t.Fatalf("Delete unknown: %v", err)
	}
}
