package reviews_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-property-market/events"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/notifications"
	notificationrepofake "github.com/jrsteele09/go-property-market/notifications/repofake"
	"github.com/jrsteele09/go-property-market/properties"
	propertyrepofake "github.com/jrsteele09/go-property-market/properties/repofake"
	"github.com/jrsteele09/go-property-market/reviews"
	reviewrepofake "github.com/jrsteele09/go-property-market/reviews/repofake"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/stretchr/testify/require"
)

var (
	owner   = &users.User{ID: "owner-1", Email: "owner@example.com", Role: users.RoleOwner}
	tenant  = &users.User{ID: "tenant-1", FirstName: "Tess", Role: users.RoleTenant}
	tenant2 = &users.User{ID: "tenant-2", Role: users.RoleTenant}
	admin   = &users.User{ID: "admin-1", Role: users.RoleAdmin}
)

const propertyID = "prop-1"

type testFixture struct {
	notifications *notifications.Service
	service       *reviews.Service
	now           time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	propertyRepo := propertyrepofake.NewFakePropertyRepo()
	require.NoError(t, propertyRepo.Create(context.Background(), &properties.Property{
		ID: propertyID, OwnerID: owner.ID, Title: "Canal house", ListingType: properties.ListingRent,
		Price: 100, Currency: "GBP", City: "Leeds", Status: properties.StatusAvailable,
	}))

	f := &testFixture{now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	f.notifications = notifications.NewService(notificationrepofake.NewFakeNotificationRepo(), events.Nop{})
	f.service = reviews.NewService(reviewrepofake.NewFakeReviewRepo(), propertyRepo, f.notifications,
		reviews.WithNowTime(func() time.Time {
			f.now = f.now.Add(time.Minute)
			return f.now
		}))
	return f
}

func TestCreateNotifiesOwner(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	r, err := f.service.Create(ctx, tenant, propertyID, reviews.CreateRequest{Rating: 4, Comment: "  Lovely  "})
	require.NoError(t, err)
	require.Equal(t, "Lovely", r.Comment)

	list, err := f.notifications.List(ctx, owner.ID, false, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	require.Equal(t, notifications.KindReviewCreated, list.Notifications[0].Kind)
	require.Contains(t, list.Notifications[0].Message, "Tess")
}

func TestCreateRules(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, tenant, propertyID, reviews.CreateRequest{Rating: 5})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, tenant, propertyID, reviews.CreateRequest{Rating: 3})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.service.Create(ctx, owner, propertyID, reviews.CreateRequest{Rating: 5})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.service.Create(ctx, tenant2, propertyID, reviews.CreateRequest{Rating: 6})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(ctx, tenant2, propertyID, reviews.CreateRequest{Rating: 3, Comment: strings.Repeat("a", 2001)})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.Create(ctx, tenant2, "missing", reviews.CreateRequest{Rating: 3})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSummaryRoundsAverage(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		author *users.User
		rating int
	}{{tenant, 5}, {tenant2, 4}, {admin, 4}} {
		_, err := f.service.Create(ctx, tc.author, propertyID, reviews.CreateRequest{Rating: tc.rating})
		require.NoError(t, err)
	}

	summary, err := f.service.Summary(ctx, propertyID)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Count)
	require.Equal(t, 4.33, summary.Average)

	list, err := f.service.ListForProperty(ctx, propertyID, 0, 2)
	require.NoError(t, err)
	require.Len(t, list.Reviews, 2)
	require.Equal(t, 3, list.Total)
	require.Equal(t, admin.ID, list.Reviews[0].AuthorID)
	require.Equal(t, 4.33, list.Summary.Average)

	empty, err := f.service.Summary(ctx, "other")
	require.NoError(t, err)
	require.Zero(t, empty.Average)
}

func TestUpdateAndDelete(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	r, err := f.service.Create(ctx, tenant, propertyID, reviews.CreateRequest{Rating: 2})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, tenant2, r.ID, reviews.UpdateRequest{Rating: utils.Ptr(5)})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := f.service.Update(ctx, tenant, r.ID, reviews.UpdateRequest{Rating: utils.Ptr(3), Comment: utils.Ptr("Better")})
	require.NoError(t, err)
	require.Equal(t, 3, updated.Rating)
	require.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = f.service.Update(ctx, tenant, r.ID, reviews.UpdateRequest{Rating: utils.Ptr(0)})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	require.ErrorIs(t, f.service.Delete(ctx, tenant2, r.ID), apperrors.ErrForbidden)
	require.NoError(t, f.service.Delete(ctx, admin, r.ID))
	require.ErrorIs(t, f.service.Delete(ctx, tenant, r.ID), apperrors.ErrNotFound)
}
