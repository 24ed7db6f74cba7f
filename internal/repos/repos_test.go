package repos_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	"wapistore/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addItem(t *testing.T, db *sqlx.DB, id string, qty int) {
	t.Helper()
	now := domain.Now()
	require.NoError(t, repos.NewCatalogRepo(db).Create(context.Background(), domain.CatalogItem{
		ID: id, Title: "Item " + id, Description: "d", Price: decimal.RequireFromString("10.50"),
		Quantity: qty, CreatedAt: now, UpdatedAt: now,
	}))
}

func addOrder(t *testing.T, db *sqlx.DB, id, productID string, qty int, status domain.OrderStatus) {
	t.Helper()
	now := domain.Now()
	require.NoError(t, repos.NewOrderRepo(db).Create(context.Background(), domain.Order{
		ID: id, Name: "Customer " + id, Email: id + "@example.com", ActiveWhatsappNumber: "+6281234567890",
		PaymentMethod: "bank_transfer", File: "https://cdn.example.com/proof.png",
		ProductID: productID, ProductName: "Item " + productID, Quantity: qty,
		TotalPrice: decimal.NewFromInt(int64(qty * 10)), Status: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func stock(t *testing.T, db *sqlx.DB, id string) int {
	t.Helper()
	it, err := repos.NewCatalogRepo(db).ByID(context.Background(), id)
	require.NoError(t, err)
	return it.Quantity
}

func TestApprove_DecrementsOnce(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	orders := repos.NewOrderRepo(db)
	addItem(t, db, "item-1", 10)
	addOrder(t, db, "o-1", "item-1", 3, domain.OrderPending)

	o, err := orders.Approve(ctx, "o-1", domain.OrderPatch{}, domain.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderApproved, o.Status)
	assert.Equal(t, 7, stock(t, db, "item-1"))

	_, err = orders.Approve(ctx, "o-1", domain.OrderPatch{}, domain.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 7, stock(t, db, "item-1"))
}

func TestApprove_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	orders := repos.NewOrderRepo(db)
	addItem(t, db, "item-1", 2)
	addOrder(t, db, "o-1", "item-1", 5, domain.OrderPending)

	_, err := orders.Approve(ctx, "o-1", domain.OrderPatch{}, domain.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "insufficient stock", apperr.PublicMessage(err))

	assert.Equal(t, 2, stock(t, db, "item-1"))
	o, err := orders.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
}

func TestApprove_UsesPatchedQuantity(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	addItem(t, db, "item-1", 10)
	addOrder(t, db, "o-1", "item-1", 3, domain.OrderPending)

	qty := 4
	o, err := repos.NewOrderRepo(db).Approve(ctx, "o-1", domain.OrderPatch{Quantity: &qty}, domain.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, o.Quantity)
	assert.Equal(t, 6, stock(t, db, "item-1"))
}

func TestApprove_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	orders := repos.NewOrderRepo(db)

	_, err := orders.Approve(ctx, "missing", domain.OrderPatch{}, domain.Now())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	addOrder(t, db, "o-gone", "item-gone", 1, domain.OrderPending)
	_, err = orders.Approve(ctx, "o-gone", domain.OrderPatch{}, domain.Now())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	o, err := orders.Get(ctx, "o-gone")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status, "status write must roll back with the failed decrement")

	empty := ""
	addItem(t, db, "item-1", 5)
	addOrder(t, db, "o-1", "item-1", 1, domain.OrderPending)
	_, err = orders.Approve(ctx, "o-1", domain.OrderPatch{ProductID: &empty}, domain.Now())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 5, stock(t, db, "item-1"))
}

func TestApprove_ClosedStoreIsUnavailable(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)
	require.NoError(t, db.Close())

	_, err := orders.Approve(context.Background(), "o-1", domain.OrderPatch{}, domain.Now())
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err), "got %v", err)
}

func TestOrderList_FilterAndPaginate(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	for i := 0; i < 23; i++ {
		status := domain.OrderPending
		if i%3 == 0 {
			status = domain.OrderDeclined
		}
		addOrder(t, db, fmt.Sprintf("o-%02d", i), "item-1", 1, status)
	}

	orders := repos.NewOrderRepo(db)
	page, total, err := orders.List(ctx, domain.OrderFilter{Status: domain.OrderPending, Page: 2, Limit: 10, SortBy: "createdAt", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Len(t, page, 5)
	for _, o := range page {
		assert.Equal(t, domain.OrderPending, o.Status)
	}

	found, total, err := orders.List(ctx, domain.OrderFilter{Search: "O-07@EXAMPLE", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "o-07", found[0].ID)
}

func TestOrderList_SearchWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	addItem(t, db, "item-1", 10)
	addOrder(t, db, "o-1", "item-1", 1, domain.OrderPending)
	addOrder(t, db, "o-2", "item-1", 1, domain.OrderPending)
	orders := repos.NewOrderRepo(db)

	for _, term := range []string{"%", "_", "o_1"} {
		found, total, err := orders.List(ctx, domain.OrderFilter{Search: term, Page: 1, Limit: 10})
		require.NoError(t, err, term)
		assert.Zero(t, total, term)
		assert.Empty(t, found, term)
	}

	found, total, err := orders.List(ctx, domain.OrderFilter{Search: "o-1", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "o-1", found[0].ID)
}

func TestOrderUpdate_NotFound(t *testing.T) {
	name := "x"
	_, err := repos.NewOrderRepo(memdb(t)).Update(context.Background(), "nope", domain.OrderPatch{Name: &name}, domain.Now())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPackages_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	pkgs := repos.NewPackageRepo(db)
	now := domain.Now()
	require.NoError(t, pkgs.Create(ctx, domain.Package{
		ID: "p-1", Name: "Pro", Features: []string{"b", "a", "c"}, Popular: true,
		Pricing:   domain.Pricing{ID: "pr-1", Setup: "100", Messaging: "1", Note: "monthly"},
		CreatedAt: now, UpdatedAt: now,
	}))

	list, err := pkgs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"b", "a", "c"}, list[0].Features)
	assert.True(t, list[0].Popular)
	assert.Equal(t, "pr-1", list[0].Pricing.ID)

	require.NoError(t, pkgs.Delete(ctx, "p-1"))
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM pricing`))
	assert.Zero(t, n)
	assert.ErrorIs(t, pkgs.Delete(ctx, "p-1"), sql.ErrNoRows)
}

func TestUsers_DeleteKeepsOrders(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	users := repos.NewUserRepo(db)
	now := domain.Now()
	u := domain.User{ID: "u-1", Email: "a@example.com", Name: "A", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(ctx, u))

	dup := u
	dup.ID, dup.Email = "u-2", "A@EXAMPLE.com"
	assert.True(t, repos.IsUniqueViolation(users.Create(ctx, dup)))

	addOrder(t, db, "o-1", "item-1", 1, domain.OrderPending)
	_, err := db.Exec(`UPDATE orders SET user_id='u-1' WHERE id='o-1'`)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, "u-1"))
	o, err := repos.NewOrderRepo(db).Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Nil(t, o.UserID)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	opts := repos.SeedOptions{SuperAdminEmail: "root@example.com", SuperAdminPassword: "Sup3r-secret!", Demo: true}
	require.NoError(t, repos.Seed(ctx, db, opts))
	require.NoError(t, repos.Seed(ctx, db, opts))

	u, err := repos.NewUserRepo(db).ByEmail(ctx, "ROOT@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, u.Role)

	items, err := repos.NewCatalogRepo(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
