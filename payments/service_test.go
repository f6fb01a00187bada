package payments_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-property-market/events"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/tx"
	"github.com/jrsteele09/go-property-market/notifications"
	notificationrepofake "github.com/jrsteele09/go-property-market/notifications/repofake"
	"github.com/jrsteele09/go-property-market/payments"
	paymentrepofake "github.com/jrsteele09/go-property-market/payments/repofake"
	"github.com/jrsteele09/go-property-market/properties"
	propertyrepofake "github.com/jrsteele09/go-property-market/properties/repofake"
	"github.com/jrsteele09/go-property-market/users"
	fakeuserrepo "github.com/jrsteele09/go-property-market/users/repofake"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	userRepo      users.UserRepo
	propertyRepo  *propertyrepofake.FakePropertyRepo
	paymentRepo   *paymentrepofake.FakePaymentRepo
	notifications *notifications.Service
	service       *payments.Service

	owner  *users.User
	tenant *users.User
	admin  *users.User
	nextID int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		userRepo:     fakeuserrepo.NewFakeUserRepo(),
		propertyRepo: propertyrepofake.NewFakePropertyRepo(),
		paymentRepo:  paymentrepofake.NewFakePaymentRepo(),
	}
	f.notifications = notifications.NewService(notificationrepofake.NewFakeNotificationRepo(), events.Nop{})

	svc, err := payments.NewService(payments.Repos{
		Payments:   f.paymentRepo,
		Users:      f.userRepo,
		Properties: f.propertyRepo,
	}, &tx.Locking{}, f.notifications)
	require.NoError(t, err)
	f.service = svc

	f.owner = f.createUser(t, "owner-1", users.RoleOwner)
	f.tenant = f.createUser(t, "tenant-1", users.RoleTenant)
	f.admin = f.createUser(t, "admin-1", users.RoleAdmin)
	return f
}

func (f *testFixture) createUser(t *testing.T, id string, role users.RoleType) *users.User {
	t.Helper()
	u := &users.User{ID: id, Email: id + "@example.com", Role: role, Verified: true, CreatedAt: time.Now()}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func (f *testFixture) createProperty(t *testing.T, listing properties.ListingType, price int64) *properties.Property {
	t.Helper()
	f.nextID++
	p := &properties.Property{
		ID:          fmt.Sprintf("prop-%d", f.nextID),
		OwnerID:     f.owner.ID,
		Title:       "Listing",
		ListingType: listing,
		Price:       price,
		Currency:    "GBP",
		City:        "Leeds",
		Status:      properties.StatusAvailable,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.propertyRepo.Create(context.Background(), p))
	return p
}

func TestPurchase(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	p := f.createProperty(t, properties.ListingSale, 25000000)

	details, created, err := f.service.Pay(ctx, f.tenant, payments.PayRequest{
		PropertyID: p.ID, Kind: payments.KindPurchase, IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(25000000), details.Transaction.Amount)
	require.Equal(t, "GBP", details.Transaction.Currency)
	require.Equal(t, payments.MethodCard, details.Transaction.Method)
	require.Len(t, details.Entries, 2)
	require.Equal(t, payments.Debit, details.Entries[0].Direction)
	require.Equal(t, f.tenant.ID, details.Entries[0].UserID)
	require.Equal(t, payments.Credit, details.Entries[1].Direction)
	require.Equal(t, f.owner.ID, details.Entries[1].UserID)

	stored, err := f.propertyRepo.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, properties.StatusSold, stored.Status)

	balance, err := f.service.VerifyLedger(ctx, details.Transaction.ID)
	require.NoError(t, err)
	require.True(t, balance.Balanced)

	buyerCount, err := f.notifications.UnreadCount(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Equal(t, 1, buyerCount)
	ownerCount, err := f.notifications.UnreadCount(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, ownerCount)
}

func TestRentMultipliesMonths(t *testing.T) {
	f := setupTestFixture(t)
	p := f.createProperty(t, properties.ListingRent, 95000)

	details, _, err := f.service.Pay(context.Background(), f.tenant, payments.PayRequest{
		PropertyID: p.ID, Kind: payments.KindRent, Months: 6, Method: payments.MethodBankTransfer, IdempotencyKey: "rent-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(570000), details.Transaction.Amount)
	require.Equal(t, 6, details.Transaction.Months)

	stored, err := f.propertyRepo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, properties.StatusRented, stored.Status)
}

func TestIdempotentReplay(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	p := f.createProperty(t, properties.ListingSale, 1000)
	req := payments.PayRequest{PropertyID: p.ID, Kind: payments.KindPurchase, IdempotencyKey: "same"}

	first, created, err := f.service.Pay(ctx, f.tenant, req)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.service.Pay(ctx, f.tenant, req)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.Transaction.ID, second.Transaction.ID)
	require.Len(t, second.Entries, 2)

	list, err := f.service.ListForUser(ctx, f.tenant.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)

	other := f.createProperty(t, properties.ListingSale, 1000)
	_, _, err = f.service.Pay(ctx, f.tenant, payments.PayRequest{PropertyID: other.ID, Kind: payments.KindPurchase, IdempotencyKey: "same"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestConcurrentPaymentsSellOnce(t *testing.T) {
	f := setupTestFixture(t)
	p := f.createProperty(t, properties.ListingSale, 1000)
	second := f.createUser(t, "tenant-2", users.RoleTenant)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, buyer := range []*users.User{f.tenant, second} {
		wg.Add(1)
		go func(i int, buyer *users.User) {
			defer wg.Done()
			_, _, results[i] = f.service.Pay(context.Background(), buyer, payments.PayRequest{
				PropertyID: p.ID, Kind: payments.KindPurchase, IdempotencyKey: "k",
			})
		}(i, buyer)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			require.ErrorIs(t, err, apperrors.ErrPropertyUnavailable)
			failures++
		}
	}
	require.Equal(t, 1, failures)
}

func TestPayRejections(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	sale := f.createProperty(t, properties.ListingSale, 1000)
	rent := f.createProperty(t, properties.ListingRent, 1000)
	blocked := f.createUser(t, "tenant-blocked", users.RoleTenant)
	require.NoError(t, f.userRepo.SetBlocked(ctx, blocked.ID, true))

	tests := []struct {
		name  string
		buyer *users.User
		req   payments.PayRequest
		want  error
	}{
		{"missing key", f.tenant, payments.PayRequest{PropertyID: sale.ID, Kind: payments.KindPurchase}, apperrors.ErrValidation},
		{"bad kind", f.tenant, payments.PayRequest{PropertyID: sale.ID, Kind: "lease", IdempotencyKey: "a"}, apperrors.ErrValidation},
		{"too many months", f.tenant, payments.PayRequest{PropertyID: rent.ID, Kind: payments.KindRent, Months: 37, IdempotencyKey: "b"}, apperrors.ErrValidation},
		{"wrong listing", f.tenant, payments.PayRequest{PropertyID: rent.ID, Kind: payments.KindPurchase, IdempotencyKey: "c"}, apperrors.ErrValidation},
		{"unknown property", f.tenant, payments.PayRequest{PropertyID: "nope", Kind: payments.KindPurchase, IdempotencyKey: "d"}, apperrors.ErrNotFound},
		{"owner cannot pay", f.owner, payments.PayRequest{PropertyID: sale.ID, Kind: payments.KindPurchase, IdempotencyKey: "e"}, apperrors.ErrForbidden},
		{"blocked buyer", blocked, payments.PayRequest{PropertyID: sale.ID, Kind: payments.KindPurchase, IdempotencyKey: "f"}, apperrors.ErrUserBlocked},
		{"bad method", f.tenant, payments.PayRequest{PropertyID: sale.ID, Kind: payments.KindPurchase, Method: "crypto", IdempotencyKey: "g"}, apperrors.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.service.Pay(ctx, tc.buyer, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	stored, err := f.propertyRepo.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, properties.StatusAvailable, stored.Status)
}

func TestGetPermissionsAndSummary(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	p := f.createProperty(t, properties.ListingRent, 1500)
	stranger := f.createUser(t, "tenant-2", users.RoleTenant)

	details, _, err := f.service.Pay(ctx, f.tenant, payments.PayRequest{PropertyID: p.ID, Kind: payments.KindRent, Months: 2, IdempotencyKey: "x"})
	require.NoError(t, err)
	id := details.Transaction.ID

	for _, u := range []*users.User{f.tenant, f.owner, f.admin} {
		got, err := f.service.Get(ctx, u, id)
		require.NoError(t, err)
		require.Len(t, got.Entries, 2)
	}
	_, err = f.service.Get(ctx, stranger, id)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	buyerSummary, err := f.service.Summary(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3000), buyerSummary.TotalDebited)
	require.Zero(t, buyerSummary.TotalCredited)
	require.Equal(t, int64(3000), buyerSummary.ByCurrency["GBP"].Debited)

	ownerSummary, err := f.service.Summary(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3000), ownerSummary.TotalCredited)
}

func TestVerifyLedgerDetectsImbalance(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	p := f.createProperty(t, properties.ListingSale, 500)

	details, _, err := f.service.Pay(ctx, f.tenant, payments.PayRequest{PropertyID: p.ID, Kind: payments.KindPurchase, IdempotencyKey: "x"})
	require.NoError(t, err)

	f.paymentRepo.AppendEntry(payments.LedgerEntry{ID: "extra", TransactionID: details.Transaction.ID, UserID: f.owner.ID, Direction: payments.Credit, Amount: 1, Currency: "GBP"})
	balance, err := f.service.VerifyLedger(ctx, details.Transaction.ID)
	require.NoError(t, err)
	require.False(t, balance.Balanced)

	_, err = f.service.VerifyLedger(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1234.56 USD", payments.FormatAmount(123456, "USD"))
	require.Equal(t, "0.05 GBP", payments.FormatAmount(5, "GBP"))
}

// passThroughTx runs callbacks without serialising them, so two requests can interleave
type passThroughTx struct{}

func (passThroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// racingKeyRepo holds the first two idempotency lookups until both have missed. Later lookups
// wait for the winner's entries, the way a database row lock holds the loser until commit.
type racingKeyRepo struct {
	*paymentrepofake.FakePaymentRepo
	lookups   atomic.Int32
	bothMiss  sync.WaitGroup
	committed chan struct{}
	once      sync.Once
}

func newRacingKeyRepo() *racingKeyRepo {
	r := &racingKeyRepo{FakePaymentRepo: paymentrepofake.NewFakePaymentRepo(), committed: make(chan struct{})}
	r.bothMiss.Add(2)
	return r
}

func (r *racingKeyRepo) GetByIdempotencyKey(ctx context.Context, buyerID, key string) (*payments.Transaction, error) {
	if r.lookups.Add(1) <= 2 {
		t, err := r.FakePaymentRepo.GetByIdempotencyKey(ctx, buyerID, key)
		r.bothMiss.Done()
		r.bothMiss.Wait()
		return t, err
	}
	<-r.committed
	return r.FakePaymentRepo.GetByIdempotencyKey(ctx, buyerID, key)
}

func (r *racingKeyRepo) CreateEntries(ctx context.Context, entries []payments.LedgerEntry) error {
	err := r.FakePaymentRepo.CreateEntries(ctx, entries)
	r.once.Do(func() { close(r.committed) })
	return err
}

func TestConcurrentRetriesWithSameKeyReplay(t *testing.T) {
	f := setupTestFixture(t)
	repo := newRacingKeyRepo()
	svc, err := payments.NewService(payments.Repos{
		Payments:   repo,
		Users:      f.userRepo,
		Properties: f.propertyRepo,
	}, passThroughTx{}, f.notifications)
	require.NoError(t, err)
	p := f.createProperty(t, properties.ListingSale, 1000)
	req := payments.PayRequest{PropertyID: p.ID, Kind: payments.KindPurchase, IdempotencyKey: "retry"}

	type result struct {
		details *payments.TransactionDetails
		created bool
		err     error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, created, err := svc.Pay(context.Background(), f.tenant, req)
			results[i] = result{d, created, err}
		}(i)
	}
	wg.Wait()

	require.NoError(t, results[0].err)
	require.NoError(t, results[1].err)
	require.NotEqual(t, results[0].created, results[1].created)
	require.Equal(t, results[0].details.Transaction.ID, results[1].details.Transaction.ID)

	list, err := svc.ListForUser(context.Background(), f.tenant.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
}
