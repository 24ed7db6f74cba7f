package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/domain"
	"wapistore/internal/events"
	"wapistore/internal/metrics"
	"wapistore/internal/repos"
	"wapistore/internal/services"
	"wapistore/internal/upload"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Envelope
}

func (r *recorder) Publish(_ context.Context, ev events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Type)
	}
	return out
}

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addUser(t *testing.T, db *sqlx.DB, id string, role domain.Role) auth.Identity {
	t.Helper()
	now := domain.Now()
	u := domain.User{ID: id, Email: id + "@example.com", Name: id, Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.NewUserRepo(db).Create(context.Background(), u))
	return auth.Identity{UserID: id, Email: u.Email, Name: id, Role: role}
}

func checkout(productID string, qty int) services.OrderInput {
	return services.OrderInput{
		Name: "Budi", Email: "budi@example.com", ActiveWhatsappNumber: "+6281234567890",
		PaymentMethod: "bank_transfer", File: "https://cdn.example.com/proof.png",
		ProductID: productID, ProductName: "Starter", Quantity: qty,
		TotalPrice: decimal.RequireFromString("1.00"),
	}
}

type fixture struct {
	db      *sqlx.DB
	orders  *services.OrderService
	catalog *services.CatalogService
	pub     *recorder
}

func newFixture(t *testing.T) fixture {
	db := memdb(t)
	pub := &recorder{}
	items := repos.NewCatalogRepo(db)
	return fixture{
		db:      db,
		orders:  services.NewOrderService(repos.NewOrderRepo(db), items, pub, metrics.New()),
		catalog: services.NewCatalogService(items),
		pub:     pub,
	}
}

func TestOrderService_CreateRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	buyer := addUser(t, f.db, "buyer", domain.RoleUser)
	item, err := f.catalog.Create(ctx, services.CatalogInput{Title: "Starter", Description: "d", Price: decimal.RequireFromString("49.90"), Quantity: 10})
	require.NoError(t, err)

	o, err := f.orders.Create(ctx, buyer, checkout(item.ID, 3))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.NotEmpty(t, o.ID)
	assert.True(t, decimal.RequireFromString("149.70").Equal(o.TotalPrice), "got %s", o.TotalPrice)
	require.NotNil(t, o.UserID)
	assert.Equal(t, "buyer", *o.UserID)
	assert.Equal(t, []string{events.OrderCreated}, f.pub.types())

	_, err = f.orders.Create(ctx, buyer, checkout("no-such-item", 1))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.orders.Create(ctx, auth.Identity{}, checkout(item.ID, 1))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestOrderService_ApproveScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	buyer := addUser(t, f.db, "buyer", domain.RoleUser)
	item, err := f.catalog.Create(ctx, services.CatalogInput{Title: "Starter", Description: "d", Price: decimal.NewFromInt(10), Quantity: 10})
	require.NoError(t, err)
	o, err := f.orders.Create(ctx, buyer, checkout(item.ID, 3))
	require.NoError(t, err)

	approved := domain.OrderApproved
	got, err := f.orders.Update(ctx, o.ID, domain.OrderPatch{Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderApproved, got.Status)
	it, err := f.catalog.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, it.Quantity)

	_, err = f.orders.Update(ctx, o.ID, domain.OrderPatch{Status: &approved})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	it, err = f.catalog.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, it.Quantity)

	// leaving approved does not restock
	completed := domain.OrderCompleted
	_, err = f.orders.Update(ctx, o.ID, domain.OrderPatch{Status: &completed})
	require.NoError(t, err)
	it, err = f.catalog.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, it.Quantity)

	assert.Equal(t, []string{events.OrderCreated, events.OrderApproved, events.OrderUpdated}, f.pub.types())
}

func TestOrderService_ConcurrentApprovalsDecrementOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	buyer := addUser(t, f.db, "buyer", domain.RoleUser)
	item, err := f.catalog.Create(ctx, services.CatalogInput{Title: "Starter", Description: "d", Price: decimal.NewFromInt(10), Quantity: 10})
	require.NoError(t, err)
	o, err := f.orders.Create(ctx, buyer, checkout(item.ID, 3))
	require.NoError(t, err)

	approved := domain.OrderApproved
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, conf int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Update(ctx, o.ID, domain.OrderPatch{Status: &approved})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperr.KindOf(err) == apperr.KindConflict {
				conf++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, conf)
	it, err := f.catalog.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, it.Quantity)
}

func TestOrderService_GetHidesOthersOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := addUser(t, f.db, "owner", domain.RoleUser)
	other := addUser(t, f.db, "other", domain.RoleUser)
	admin := addUser(t, f.db, "admin", domain.RoleAdmin)
	item, err := f.catalog.Create(ctx, services.CatalogInput{Title: "Starter", Description: "d", Price: decimal.NewFromInt(10), Quantity: 1})
	require.NoError(t, err)
	o, err := f.orders.Create(ctx, owner, checkout(item.ID, 1))
	require.NoError(t, err)

	_, err = f.orders.Get(ctx, owner, o.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, admin, o.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, other, o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	mine, err := f.orders.Dashboard(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestOrderService_UpdateRejectsEmptyAndBadProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.orders.Update(ctx, "any", domain.OrderPatch{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	missing := "missing"
	_, err = f.orders.Update(ctx, "any", domain.OrderPatch{ProductID: &missing})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUserService_SuperAdminProtections(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	svc := services.NewUserService(repos.NewUserRepo(db))
	super := addUser(t, db, "root", domain.RoleSuperAdmin)
	admin := addUser(t, db, "admin", domain.RoleAdmin)
	plain := addUser(t, db, "plain", domain.RoleUser)

	superRole := domain.RoleSuperAdmin
	_, err := svc.Update(ctx, admin, plain.UserID, services.UserPatch{Role: &superRole})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err), "admin cannot grant SUPER_ADMIN")

	userRole := domain.RoleUser
	_, err = svc.Update(ctx, admin, super.UserID, services.UserPatch{Role: &userRole})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err), "admin cannot demote SUPER_ADMIN")

	adminRole := domain.RoleAdmin
	u, err := svc.Update(ctx, admin, plain.UserID, services.UserPatch{Role: &adminRole})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = svc.Create(ctx, admin, services.UserInput{Email: "x@example.com", Name: "X", Role: domain.RoleSuperAdmin})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(svc.Delete(ctx, admin, plain.UserID)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(svc.Delete(ctx, super, super.UserID)))
	assert.NoError(t, svc.Delete(ctx, super, plain.UserID))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.Delete(ctx, super, plain.UserID)))
}

func TestAuthService_SignupSigninResolve(t *testing.T) {
	ctx := context.Background()
	db := memdb(t)
	users := repos.NewUserRepo(db)
	svc := services.NewAuthService(users, auth.NewTokens("test-secret", "wapistore", time.Hour))

	u, err := svc.Signup(ctx, "Sari", "Sari@Example.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.Equal(t, "sari@example.com", u.Email)

	_, err = svc.Signup(ctx, "Sari", "sari@example.com", "Passw0rd!")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, _, _, err = svc.Signin(ctx, "sari@example.com", "wrong-Passw0rd!")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, _, _, err = svc.Signin(ctx, "nobody@example.com", "Passw0rd!")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	token, _, _, err := svc.Signin(ctx, "SARI@example.com", "Passw0rd!")
	require.NoError(t, err)
	id, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, domain.RoleUser, id.Role)

	// role changes apply without a new token
	u.Role = domain.RoleAdmin
	require.NoError(t, users.Update(ctx, *u))
	id, err = svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, id.Role)

	require.NoError(t, users.Delete(ctx, u.ID))
	id, err = svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, id.Anonymous())

	id, err = svc.Resolve(ctx, "garbage")
	require.NoError(t, err)
	assert.True(t, id.Anonymous())
}

type stubRelay struct{ calls int }

func (s *stubRelay) Upload(context.Context, upload.File) (upload.Result, error) {
	s.calls++
	return upload.Result{URL: "https://res.example.com/a.png", PublicID: "a"}, nil
}

func TestUploadService_ValidatesBeforeRelay(t *testing.T) {
	relay := &stubRelay{}
	svc := services.NewUploadService(relay, 1024, nil)

	_, _, err := svc.Upload(context.Background(), upload.File{Name: "a.txt", Data: []byte("plain text")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, relay.calls)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	res, mediaType, err := svc.Upload(context.Background(), upload.File{Name: "a.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	assert.Equal(t, "https://res.example.com/a.png", res.URL)
	assert.Equal(t, 1, relay.calls)

	_, _, err = services.NewUploadService(nil, 1024, nil).Upload(context.Background(), upload.File{Name: "a.png", Data: png})
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}
