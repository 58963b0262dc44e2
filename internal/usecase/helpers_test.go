package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository/memory"
)

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type stubIssuer struct {
	last port.AccessClaims
}

func (s *stubIssuer) Issue(claims port.AccessClaims) (string, time.Time, error) {
	s.last = claims
	return "token-" + claims.UserID, time.Now().Add(time.Hour), nil
}

type recordingEvents struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	placed     []domain.OrderPlacedEvent
	changed    []domain.StatusChangedEvent
	roles      []domain.RoleUpdatedEvent
}

func (r *recordingEvents) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, e)
	return nil
}

func (r *recordingEvents) PublishOrderPlaced(_ context.Context, e domain.OrderPlacedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, e)
	return nil
}

func (r *recordingEvents) PublishStatusChanged(_ context.Context, e domain.StatusChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, e)
	return nil
}

func (r *recordingEvents) PublishRoleUpdated(_ context.Context, e domain.RoleUpdatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, e)
	return nil
}

type memoryCache struct {
	mu          sync.Mutex
	sets        map[string][]domain.Permission
	invalidated [][]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{sets: map[string][]domain.Permission{}}
}

func (c *memoryCache) Get(_ context.Context, userID string) ([]domain.Permission, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.sets[userID]
	return p, ok, nil
}

func (c *memoryCache) Set(_ context.Context, userID string, perms []domain.Permission, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[userID] = perms
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userIDs)
	if len(userIDs) == 0 {
		c.sets = map[string][]domain.Permission{}
	}
	for _, id := range userIDs {
		delete(c.sets, id)
	}
	return nil
}

type stubStorage struct {
	puts    []string
	deletes []string
}

func (s *stubStorage) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) (port.StoredObject, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return port.StoredObject{}, err
	}
	s.puts = append(s.puts, key)
	return port.StoredObject{Key: key, URL: "https://cdn.test/" + key, Size: size, ContentType: contentType}, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	return nil
}

type stubRenderer struct{}

func (stubRenderer) Render(order domain.Order, customer *domain.User) ([]byte, error) {
	name := ""
	if customer != nil {
		name = customer.FirstName
	}
	return []byte("%PDF " + order.OrdID + " " + name), nil
}

type testEnv struct {
	ctx      context.Context
	exec     *Executor
	store    *memory.Store
	repos    *repository.Repositories
	cache    *memoryCache
	resolver *PermissionResolver
	events   *recordingEvents
	storage  *stubStorage
	issuer   *stubIssuer

	auth     *AuthService
	users    *UserService
	vendors  *VendorService
	products *ProductService
	orders   *OrderService
	payments *PaymentService
	shipping *ShippingService
	roles    *RoleService
	methods  *PaymentMethodService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	exec, err := NewExecutor(log, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	store := memory.NewStore()
	repos := repository.NewRepositories(store, memory.NewSequence())
	if err := repos.EnsureCollections(ctx); err != nil {
		t.Fatalf("EnsureCollections: %v", err)
	}

	env := &testEnv{
		ctx:     ctx,
		exec:    exec,
		store:   store,
		repos:   repos,
		cache:   newMemoryCache(),
		events:  &recordingEvents{},
		storage: &stubStorage{},
		issuer:  &stubIssuer{},
	}
	env.resolver = NewPermissionResolver(repos.Roles, repos.Users, env.cache, time.Minute, log)
	if err := env.resolver.SeedRoles(ctx); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}

	env.auth = NewAuthService(exec, repos.Users, env.resolver, stubHasher{}, nil, env.issuer, env.events)
	env.users = NewUserService(exec, repos.Users, env.resolver, stubHasher{})
	env.vendors = NewVendorService(exec, repos.Vendors, repos.Users, store, env.resolver)
	env.products = NewProductService(exec, repos.Products, repos.Vendors, env.storage)
	env.orders = NewOrderService(exec, OrderDeps{
		Orders:         repos.Orders,
		Payments:       repos.Payments,
		Products:       repos.Products,
		PaymentMethods: repos.PaymentMethods,
		Users:          repos.Users,
		Tx:             store,
		Events:         env.events,
		Invoices:       stubRenderer{},
	})
	env.payments = NewPaymentService(exec, repos.Payments, repos.Orders, store, env.events)
	env.shipping = NewShippingService(exec, repos.Shipping, repos.Orders, store, env.events)
	env.roles = NewRoleService(exec, repos.Roles, env.resolver, env.events)
	env.methods = NewPaymentMethodService(exec, repos.PaymentMethods, store)
	return env
}

func adminAuth() domain.AuthContext {
	return domain.NewAuthContext("admin-1", "admin@shop.test", []string{domain.RoleAdmin}, domain.AdminPermissions())
}

func customerAuth(userID string) domain.AuthContext {
	return domain.NewAuthContext(userID, userID+"@shop.test", []string{domain.RoleCustomer}, domain.DefaultCustomerPermissions)
}

func vendorAuth(userID string) domain.AuthContext {
	perms := append(append([]domain.Permission{}, domain.DefaultCustomerPermissions...), domain.DefaultVendorPermissions...)
	return domain.NewAuthContext(userID, userID+"@shop.test", []string{domain.RoleCustomer, domain.RoleVendor}, perms)
}

func mustOk[T any](t *testing.T, r domain.Result[T]) T {
	t.Helper()
	if f, failed := r.Failure(); failed {
		t.Fatalf("expected success, got %s: %s", f.Kind, f.Message)
	}
	return r.Value()
}

func mustFail[T any](t *testing.T, r domain.Result[T], kind domain.ErrorKind) domain.Failure {
	t.Helper()
	f, failed := r.Failure()
	if !failed {
		t.Fatalf("expected %s failure, got success", kind)
	}
	if f.Kind != kind {
		t.Fatalf("expected %s failure, got %s: %s", kind, f.Kind, f.Message)
	}
	return f
}

// seedCatalogue creates a vendor owned by vendorUser with one active product.
func (e *testEnv) seedCatalogue(t *testing.T, vendorUser string, price int64, stock int) domain.Product {
	t.Helper()
	mustOk(t, e.vendors.Create(e.ctx, vendorAuth(vendorUser), CreateVendorInput{StoreName: "Store " + vendorUser}))
	return mustOk(t, e.products.Create(e.ctx, vendorAuth(vendorUser), CreateProductInput{
		Name:     "Widget",
		Price:    price,
		Currency: "usd",
		Stock:    stock,
	}))
}

func (e *testEnv) placeOrder(t *testing.T, auth domain.AuthContext, product domain.Product, qty int) domain.Order {
	t.Helper()
	line := product.Price * int64(qty)
	return mustOk(t, e.orders.Place(e.ctx, auth, PlaceOrderInput{
		Items: []domain.OrderItem{{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   qty,
			UnitPrice:  product.Price,
			TotalPrice: line,
		}},
		Total:    line,
		Currency: strings.ToLower(product.Currency),
	}))
}
