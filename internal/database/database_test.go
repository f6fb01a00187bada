package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jrsteele09/go-property-market/complaints"
	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/database"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/otp"
	"github.com/jrsteele09/go-property-market/payments"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/reviews"
	"github.com/jrsteele09/go-property-market/token/refresh"
	"github.com/jrsteele09/go-property-market/users"
)

type testFixture struct {
	db            *gorm.DB
	txm           *database.TxManager
	users         *database.UserRepo
	properties    *database.PropertyRepo
	payments      *database.PaymentRepo
	reviews       *database.ReviewRepo
	complaints    *database.ComplaintRepo
	notifications *database.NotificationRepo
	otps          *database.OTPRepo
	refresh       *database.RefreshTokenRepo
	now           time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	return &testFixture{
		db:            db,
		txm:           database.NewTxManager(db),
		users:         database.NewUserRepo(db),
		properties:    database.NewPropertyRepo(db),
		payments:      database.NewPaymentRepo(db),
		reviews:       database.NewReviewRepo(db),
		complaints:    database.NewComplaintRepo(db),
		notifications: database.NewNotificationRepo(db),
		otps:          database.NewOTPRepo(db),
		refresh:       database.NewRefreshTokenRepo(db),
		now:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *testFixture) createUser(t *testing.T, id string, role users.RoleType) *users.User {
	t.Helper()
	u := &users.User{ID: id, Email: id + "@example.com", PasswordHash: "hash", Role: role, Verified: true, CreatedAt: f.now}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *testFixture) createProperty(t *testing.T, id, ownerID string, listing properties.ListingType, price int64, createdAt time.Time) *properties.Property {
	t.Helper()
	p := &properties.Property{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Flat " + id,
		Description: "Two bed flat near the river",
		ListingType: listing,
		Price:       price,
		Currency:    "GBP",
		City:        "Leeds",
		Bedrooms:    2,
		Status:      properties.StatusAvailable,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, f.properties.Create(context.Background(), p))
	return p
}

func TestUserRepo(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	owner := f.createUser(t, "owner-1", users.RoleOwner)
	f.createUser(t, "tenant-1", users.RoleTenant)

	dup := &users.User{ID: "other", Email: owner.Email, Role: users.RoleTenant}
	require.ErrorIs(t, f.users.Create(ctx, dup), apperrors.ErrEmailTaken)

	got, err := f.users.GetByEmail(ctx, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
	assert.Equal(t, users.RoleOwner, got.Role)

	_, err = f.users.GetByID(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	got.FirstName = "Ada"
	require.NoError(t, f.users.Update(ctx, got))
	got, err = f.users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)

	stale := *got
	require.NoError(t, f.users.SetBlocked(ctx, owner.ID, true))
	stale.LastName = "Lovelace"
	require.NoError(t, f.users.Update(ctx, &stale))
	require.NoError(t, f.users.SetPassword(ctx, owner.ID, "new-hash"))
	require.NoError(t, f.users.RecordLogin(ctx, owner.ID, f.now))
	got, err = f.users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.True(t, got.LastLogin.Equal(f.now))
	require.ErrorIs(t, f.users.SetPassword(ctx, "missing", "x"), apperrors.ErrUserNotFound)
	require.ErrorIs(t, f.users.SetVerified(ctx, "missing", true), apperrors.ErrUserNotFound)

	list, err := f.users.List(ctx, users.ListFilter{Role: users.RoleTenant})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "tenant-1", list.Users[0].ID)

	require.NoError(t, f.users.Delete(ctx, owner.ID))
	require.ErrorIs(t, f.users.Delete(ctx, owner.ID), apperrors.ErrUserNotFound)
}

func TestPropertyRepoListAndImages(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.createProperty(t, "p-1", "owner-1", properties.ListingSale, 300000, f.now)
	f.createProperty(t, "p-2", "owner-1", properties.ListingRent, 1200, f.now.Add(time.Hour))
	f.createProperty(t, "p-3", "owner-2", properties.ListingSale, 150000, f.now.Add(2*time.Hour))

	require.NoError(t, f.properties.AddImage(ctx, "p-1", properties.Image{ID: "img-1", Key: "properties/p-1/a.jpg", URL: "http://cdn/a.jpg", CreatedAt: f.now}, 2))
	require.NoError(t, f.properties.AddImage(ctx, "p-1", properties.Image{ID: "img-2", Key: "properties/p-1/b.jpg", URL: "http://cdn/b.jpg", CreatedAt: f.now.Add(time.Minute)}, 2))
	require.ErrorIs(t, f.properties.AddImage(ctx, "p-1", properties.Image{ID: "img-3", Key: "k", URL: "u", CreatedAt: f.now}, 2), properties.ErrTooManyImages)
	require.ErrorIs(t, f.properties.AddImage(ctx, "missing", properties.Image{ID: "img-4"}, 2), apperrors.ErrNotFound)

	p, err := f.properties.Get(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "img-1", p.Images[0].ID)

	list, total, err := f.properties.List(ctx, properties.Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	assert.Equal(t, []string{"p-3", "p-2", "p-1"}, propertyIDs(list))

	list, total, err = f.properties.List(ctx, properties.Filter{ListingType: properties.ListingSale, Sort: properties.SortPriceAsc})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, []string{"p-3", "p-1"}, propertyIDs(list))

	list, total, err = f.properties.List(ctx, properties.Filter{City: "leeds", MinPrice: 1000, MaxPrice: 200000, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, []string{"p-2"}, propertyIDs(list))

	list, _, err = f.properties.List(ctx, properties.Filter{Query: "FLAT P-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-2"}, propertyIDs(list))

	require.NoError(t, f.properties.RemoveImage(ctx, "p-1", "img-1"))
	require.ErrorIs(t, f.properties.RemoveImage(ctx, "p-1", "img-1"), apperrors.ErrNotFound)

	require.NoError(t, f.properties.Delete(ctx, "p-1"))
	_, err = f.properties.Get(ctx, "p-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPropertyRepoUpdateKeepsImagesAndStatus(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	p := f.createProperty(t, "p-1", "owner-1", properties.ListingSale, 300000, f.now)
	require.NoError(t, f.properties.AddImage(ctx, p.ID, properties.Image{ID: "img-1", Key: "k", URL: "u", CreatedAt: f.now}, properties.MaxImagesPerProperty))
	require.NoError(t, f.properties.SetStatus(ctx, p.ID, properties.StatusAvailable, properties.StatusSold, f.now))

	// p still holds the status read before the sale
	p.Title = "Renamed flat"
	p.Images = nil
	p.OwnerID = "owner-2"
	require.NoError(t, f.properties.Update(ctx, p))

	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed flat", got.Title)
	assert.Len(t, got.Images, 1)
	assert.Equal(t, properties.StatusSold, got.Status)
	assert.Equal(t, "owner-1", got.OwnerID)

	p.ID = "missing"
	require.ErrorIs(t, f.properties.Update(ctx, p), apperrors.ErrNotFound)
}

func TestPropertyRepoSetStatusCompareAndSet(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.createProperty(t, "p-1", "owner-1", properties.ListingSale, 300000, f.now)

	require.NoError(t, f.properties.SetStatus(ctx, "p-1", properties.StatusAvailable, properties.StatusSold, f.now))
	err := f.properties.SetStatus(ctx, "p-1", properties.StatusAvailable, properties.StatusSold, f.now)
	require.ErrorIs(t, err, apperrors.ErrPropertyUnavailable)
	require.ErrorIs(t, f.properties.SetStatus(ctx, "missing", "", properties.StatusSold, f.now), apperrors.ErrNotFound)

	require.NoError(t, f.properties.SetStatus(ctx, "p-1", "", properties.StatusOffMarket, f.now))
	got, err := f.properties.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, properties.StatusOffMarket, got.Status)
}

func TestPaymentRepoIdempotencyKeyIsUniquePerBuyer(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	txn := &payments.Transaction{
		ID: "tx-1", IdempotencyKey: "key-1", BuyerID: "tenant-1", OwnerID: "owner-1", PropertyID: "p-1",
		Kind: payments.KindPurchase, Amount: 500, Currency: "GBP", Method: payments.MethodCard,
		Status: payments.StatusCompleted, CreatedAt: f.now,
	}
	require.NoError(t, f.payments.CreateTransaction(ctx, txn))

	again := *txn
	again.ID = "tx-2"
	require.ErrorIs(t, f.payments.CreateTransaction(ctx, &again), apperrors.ErrConflict)

	other := *txn
	other.ID, other.BuyerID = "tx-3", "tenant-2"
	require.NoError(t, f.payments.CreateTransaction(ctx, &other))

	got, err := f.payments.GetByIdempotencyKey(ctx, "tenant-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.ID)
	_, err = f.payments.GetTransaction(ctx, "tx-9")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, f.payments.CreateEntries(ctx, []payments.LedgerEntry{
		{ID: "e-2", TransactionID: "tx-1", UserID: "owner-1", Direction: payments.Credit, Amount: 500, Currency: "GBP", CreatedAt: f.now},
		{ID: "e-1", TransactionID: "tx-1", UserID: "tenant-1", Direction: payments.Debit, Amount: 500, Currency: "GBP", CreatedAt: f.now},
	}))
	entries, err := f.payments.EntriesFor(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, payments.Debit, entries[0].Direction)

	list, total, err := f.payments.ListForUser(ctx, "owner-1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}

func TestTxManagerRollsBack(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.txm.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, f.users.Create(ctx, &users.User{ID: "u-1", Email: "u1@example.com", Role: users.RoleTenant}))
		return f.txm.RunInTx(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	_, err = f.users.GetByID(ctx, "u-1")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestPaymentServiceOnDatabase(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner-1", users.RoleOwner)
	tenant := f.createUser(t, "tenant-1", users.RoleTenant)
	f.createProperty(t, "p-1", owner.ID, properties.ListingRent, 1200, f.now)

	notifier := notifications.NewService(f.notifications, events.Nop{})
	svc, err := payments.NewService(payments.Repos{
		Payments:   f.payments,
		Users:      f.users,
		Properties: f.properties,
	}, f.txm, notifier)
	require.NoError(t, err)

	req := payments.PayRequest{PropertyID: "p-1", Kind: payments.KindRent, Months: 3, IdempotencyKey: "rent-1"}
	details, created, err := svc.Pay(ctx, tenant, req)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, int64(3600), details.Transaction.Amount)

	replay, created, err := svc.Pay(ctx, tenant, req)
	require.NoError(t, err)
	require.False(t, created)
	assert.Equal(t, details.Transaction.ID, replay.Transaction.ID)

	p, err := f.properties.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, properties.StatusRented, p.Status)

	balance, err := svc.VerifyLedger(ctx, details.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, balance.Balanced)

	unread, err := f.notifications.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestReviewRepo(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reviews.Create(ctx, &reviews.Review{ID: "r-1", PropertyID: "p-1", AuthorID: "a-1", Rating: 4, CreatedAt: f.now}))
	require.NoError(t, f.reviews.Create(ctx, &reviews.Review{ID: "r-2", PropertyID: "p-1", AuthorID: "a-2", Rating: 5, CreatedAt: f.now.Add(time.Minute)}))
	err := f.reviews.Create(ctx, &reviews.Review{ID: "r-3", PropertyID: "p-1", AuthorID: "a-1", Rating: 1})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	count, sum, err := f.reviews.RatingStats(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 9, sum)

	count, sum, err = f.reviews.RatingStats(ctx, "p-empty")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, sum)

	list, total, err := f.reviews.ListForProperty(ctx, "p-1", 0, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, "r-2", list[0].ID)

	require.NoError(t, f.reviews.Delete(ctx, "r-1"))
	_, err = f.reviews.Get(ctx, "r-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestComplaintRepoFilters(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for i, c := range []*complaints.Complaint{
		{ID: "c-1", ComplainantID: "tenant-1", OwnerID: "owner-1", Subject: "Leak", Status: complaints.StatusOpen},
		{ID: "c-2", ComplainantID: "tenant-1", Subject: "Billing", Status: complaints.StatusResolved},
		{ID: "c-3", ComplainantID: "tenant-2", OwnerID: "owner-1", Subject: "Noise", Status: complaints.StatusOpen},
	} {
		c.CreatedAt = f.now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.complaints.Create(ctx, c))
	}

	list, total, err := f.complaints.List(ctx, complaints.ListFilter{ComplainantID: "tenant-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "c-2", list[0].ID)

	_, total, err = f.complaints.List(ctx, complaints.ListFilter{OwnerID: "owner-1", Status: complaints.StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	c, err := f.complaints.Get(ctx, "c-1")
	require.NoError(t, err)
	c.Status = complaints.StatusInProgress
	require.NoError(t, f.complaints.Update(ctx, c))
	c, err = f.complaints.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, complaints.StatusInProgress, c.Status)
}

func TestNotificationRepoReadState(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for i, id := range []string{"n-1", "n-2", "n-3"} {
		require.NoError(t, f.notifications.Create(ctx, &notifications.Notification{
			ID: id, UserID: "u-1", Kind: notifications.KindPaymentSent, Title: "Paid", CreatedAt: f.now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, f.notifications.MarkRead(ctx, "n-1"))
	require.ErrorIs(t, f.notifications.MarkRead(ctx, "missing"), apperrors.ErrNotFound)

	unread, err := f.notifications.CountUnread(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	list, total, err := f.notifications.List(ctx, "u-1", true, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "n-3", list[0].ID)

	marked, err := f.notifications.MarkAllRead(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
}

func TestOTPAndRefreshRepos(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code := &otp.Code{Email: "a@example.com", Purpose: otp.PurposePasswordReset, CodeHash: "h1", ExpiresAt: f.now.Add(time.Minute), CreatedAt: f.now}
	require.NoError(t, f.otps.Upsert(ctx, code))
	attempts, err := f.otps.IncrementAttempts(ctx, code.Email, code.Purpose)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	code.CodeHash = "h2"
	require.NoError(t, f.otps.Upsert(ctx, code))
	got, err := f.otps.Get(ctx, code.Email, code.Purpose)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.CodeHash)
	assert.Zero(t, got.Attempts)

	removed, err := f.otps.DeleteExpired(ctx, f.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = f.otps.Get(ctx, code.Email, code.Purpose)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, f.refresh.Upsert(ctx, &refresh.StoredRefreshToken{TokenHash: "th", UserID: "u-1", Iat: f.now, ExpiresAt: f.now.Add(time.Hour)}))
	stored, err := f.refresh.GetByUserID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "th", stored.TokenHash)
	require.NoError(t, f.refresh.DeleteByUserID(ctx, "u-1"))
	_, err = f.refresh.Get(ctx, "th")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, f.refresh.Upsert(ctx, &refresh.StoredRefreshToken{TokenHash: "th2", UserID: "u-1", Iat: f.now, ExpiresAt: f.now.Add(time.Hour)}))
	require.NoError(t, f.refresh.Delete(ctx, "th2"))
	require.ErrorIs(t, f.refresh.Delete(ctx, "th2"), apperrors.ErrNotFound)
}

func propertyIDs(list []*properties.Property) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids
}
