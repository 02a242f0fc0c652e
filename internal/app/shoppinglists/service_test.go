package shoppinglists_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	memclock "github.com/shoplist-app/shoplist-api/internal/adapters/memory/clock"
	memlistrepo "github.com/shoplist-app/shoplist-api/internal/adapters/memory/listrepo"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
	"github.com/shoplist-app/shoplist-api/internal/domain"
	"github.com/shoplist-app/shoplist-api/internal/ports/out/listrepo"
)

const (
	listA = "00000000-0000-4000-8000-00000000000a"
	itemA = "00000000-0000-4000-8000-0000000000a1"
)

func newService(t *testing.T) (*shoppinglists.Service, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := shoppinglists.NewService(memlistrepo.NewRepo(), clk)
	n := 0
	svc.SetIDGeneratorsForTest(nil, func() domain.ItemID {
		n++
		return domain.ItemID("00000000-0000-4000-8000-0000000000a" + strconv.Itoa(n))
	})
	return svc, clk
}

func kindOf(t *testing.T, err error) shoppinglists.ErrorKind {
	t.Helper()
	var e *shoppinglists.Error
	if !errors.As(err, &e) {
		t.Fatalf("err=%v, want *shoppinglists.Error", err)
	}
	return e.Kind
}

func TestService_CreateList_NormalizesTitleAndRejectsDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk := newService(t)
	svc.SetIDGeneratorsForTest(func() domain.ListID { return listA }, nil)

	l, err := svc.CreateList(ctx, "u1", "  Weekend   shopping ")
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if l.ID != listA || l.OwnerID != "u1" || l.Title != "Weekend shopping" {
		t.Fatalf("created=%+v", l)
	}
	if !l.CreatedAt.Equal(clk.Now()) || !l.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("timestamps=%v/%v, want %v", l.CreatedAt, l.UpdatedAt, clk.Now())
	}

	svc.SetIDGeneratorsForTest(func() domain.ListID { return "00000000-0000-4000-8000-00000000000b" }, nil)
	_, err = svc.CreateList(ctx, "u1", "weekend SHOPPING")
	if got := kindOf(t, err); got != shoppinglists.KindDuplicateTitle {
		t.Fatalf("kind=%s, want %s", got, shoppinglists.KindDuplicateTitle)
	}
}

func TestService_CrossOwnerAccessIsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)
	svc.SetIDGeneratorsForTest(func() domain.ListID { return listA }, nil)

	if _, err := svc.CreateList(ctx, "owner", "Groceries"); err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if _, err := svc.AddItemToList(ctx, "owner", listA, shoppinglists.AddItemInput{Name: "Milk"}); err != nil {
		t.Fatalf("AddItemToList: %v", err)
	}

	name := "Bread"
	checks := map[string]error{
		"GetListByID": func() error { _, err := svc.GetListByID(ctx, "intruder", listA); return err }(),
		"GetListWithItems": func() error {
			_, err := svc.GetListWithItems(ctx, "intruder", listA)
			return err
		}(),
		"UpdateListTitle": func() error {
			_, err := svc.UpdateListTitle(ctx, "intruder", listA, "Mine now")
			return err
		}(),
		"AddItemToList": func() error {
			_, err := svc.AddItemToList(ctx, "intruder", listA, shoppinglists.AddItemInput{Name: "Eggs"})
			return err
		}(),
		"UpdateShoppingListItem": func() error {
			_, err := svc.UpdateShoppingListItem(ctx, "intruder", listA, itemA, shoppinglists.ItemPatch{Name: &name})
			return err
		}(),
		"DeleteShoppingListItem": svc.DeleteShoppingListItem(ctx, "intruder", listA, itemA),
		"ListItems":              func() error { _, err := svc.ListItems(ctx, "intruder", listA); return err }(),
		"DeleteList":             svc.DeleteList(ctx, "intruder", listA),
	}
	for op, err := range checks {
		if got := kindOf(t, err); got != shoppinglists.KindNotFound {
			t.Fatalf("%s kind=%s, want %s", op, got, shoppinglists.KindNotFound)
		}
	}

	// The owner's data is untouched.
	d, err := svc.GetListWithItems(ctx, "owner", listA)
	if err != nil {
		t.Fatalf("GetListWithItems(owner): %v", err)
	}
	if d.Title != "Groceries" || len(d.Items) != 1 || d.Items[0].Name != "Milk" {
		t.Fatalf("details=%+v", d)
	}
}

func TestService_InvalidUUIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newService(t)

	if _, err := svc.GetListByID(ctx, "u1", "not-a-uuid"); kindOf(t, err) != shoppinglists.KindInvalidUUID {
		t.Fatalf("GetListByID err=%v, want INVALID_UUID", err)
	}
	if err := svc.DeleteList(ctx, "u1", "42"); kindOf(t, err) != shoppinglists.KindInvalidUUID {
		t.Fatalf("DeleteList err=%v, want INVALID_UUID", err)
	}
	if err := svc.DeleteShoppingListItem(ctx, "u1", listA, "nope"); kindOf(t, err) != shoppinglists.KindInvalidUUID {
		t.Fatalf("DeleteShoppingListItem err=%v, want INVALID_UUID", err)
	}
}

func TestService_Items_DefaultPurchasedFalseAndPatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk := newService(t)
	svc.SetIDGeneratorsForTest(func() domain.ListID { return listA }, nil)

	if _, err := svc.CreateList(ctx, "u1", "Groceries"); err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	it, err := svc.AddItemToList(ctx, "u1", listA, shoppinglists.AddItemInput{Name: " Milk "})
	if err != nil {
		t.Fatalf("AddItemToList: %v", err)
	}
	if it.Name != "Milk" || it.Purchased || it.ListID != listA {
		t.Fatalf("item=%+v", it)
	}

	clk.Advance(time.Minute)
	purchased := true
	got, err := svc.UpdateShoppingListItem(ctx, "u1", listA, it.ID, shoppinglists.ItemPatch{Purchased: &purchased})
	if err != nil {
		t.Fatalf("UpdateShoppingListItem: %v", err)
	}
	if !got.Purchased || got.Name != "Milk" || !got.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("updated=%+v", got)
	}

	missing := "00000000-0000-4000-8000-0000000000ff"
	if _, err := svc.UpdateShoppingListItem(ctx, "u1", listA, domain.ItemID(missing), shoppinglists.ItemPatch{Purchased: &purchased}); kindOf(t, err) != shoppinglists.KindNotFound {
		t.Fatalf("update missing item err=%v, want NOT_FOUND", err)
	}

	if err := svc.DeleteShoppingListItem(ctx, "u1", listA, it.ID); err != nil {
		t.Fatalf("DeleteShoppingListItem: %v", err)
	}
	items, err := svc.ListItems(ctx, "u1", listA)
	if err != nil || len(items) != 0 {
		t.Fatalf("ListItems=%v err=%v, want empty", items, err)
	}
}

func TestService_ListMyLists_NewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk := newService(t)

	ids := []domain.ListID{"00000000-0000-4000-8000-000000000001", "00000000-0000-4000-8000-000000000002"}
	for i, id := range ids {
		id := id
		svc.SetIDGeneratorsForTest(func() domain.ListID { return id }, nil)
		if _, err := svc.CreateList(ctx, "u1", "List "+strconv.Itoa(i)); err != nil {
			t.Fatalf("CreateList: %v", err)
		}
		clk.Advance(time.Second)
	}
	ls, err := svc.ListMyLists(ctx, "u1")
	if err != nil {
		t.Fatalf("ListMyLists: %v", err)
	}
	if len(ls) != 2 || ls[0].ID != ids[1] || ls[1].ID != ids[0] {
		t.Fatalf("lists=%+v", ls)
	}
}

type failingRepo struct {
	listrepo.Repository
	err error
}

func (f failingRepo) GetList(context.Context, domain.UserID, domain.ListID) (listrepo.List, error) {
	return listrepo.List{}, f.err
}

func (f failingRepo) CreateList(context.Context, listrepo.List) error { return f.err }

func TestService_StoreErrorsMapToClosedKinds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := memclock.NewManualClock(time.Unix(0, 0))

	cases := []struct {
		name string
		err  error
		want shoppinglists.ErrorKind
	}{
		{name: "permission", err: listrepo.ErrPermissionDenied, want: shoppinglists.KindForbidden},
		{name: "other", err: errors.New("connection reset"), want: shoppinglists.KindDatabase},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := shoppinglists.NewService(failingRepo{err: tc.err}, clk)
			_, err := svc.GetListByID(ctx, "u1", listA)
			if got := kindOf(t, err); got != tc.want {
				t.Fatalf("GetListByID kind=%s, want %s", got, tc.want)
			}
			_, err = svc.CreateList(ctx, "u1", "x")
			if got := kindOf(t, err); got != tc.want {
				t.Fatalf("CreateList kind=%s, want %s", got, tc.want)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("err=%v does not wrap %v", err, tc.err)
			}
		})
	}
}
