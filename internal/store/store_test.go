package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/config"
	"github.com/jrsteele09/go-property-market/internal/store"
	"github.com/jrsteele09/go-property-market/users"
)

func TestOpenMemoryAndSQLite(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", driver)
			t.Setenv("DATABASE_URL", ":memory:")

			repos, err := store.Open(config.New())
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, repos.Close()) })

			ctx := context.Background()
			err = repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
				return repos.Users.Create(ctx, &users.User{Email: "a@example.com", PasswordHash: "x", Role: users.RoleTenant})
			})
			require.NoError(t, err)
			u, err := repos.Users.GetByEmail(ctx, "a@example.com")
			require.NoError(t, err)
			require.NotEmpty(t, u.ID)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := store.Open(config.New())
	require.Error(t, err)
}

func TestOpenObjectStore(t *testing.T) {
	t.Setenv("DATA_FOLDER", t.TempDir())
	t.Setenv("PUBLIC_BASE_URL", "http://api.test")

	t.Setenv("OBJECT_STORE", "fs")
	s, handler, err := store.OpenObjectStore(config.New())
	require.NoError(t, err)
	require.NotNil(t, handler)
	obj, err := s.Put(context.Background(), "properties/p1/a.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, "http://api.test/media/properties/p1/a.png", obj.URL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/{key...}", handler)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/properties/p1/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png", rec.Body.String())

	t.Setenv("OBJECT_STORE", "supabase")
	t.Setenv("SUPABASE_URL", "")
	_, _, err = store.OpenObjectStore(config.New())
	require.Error(t, err)

	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	s, handler, err = store.OpenObjectStore(config.New())
	require.NoError(t, err)
	require.Nil(t, handler)
	require.Equal(t, "https://project.supabase.co/storage/v1/object/public/property-images/a.png", s.URL("a.png"))

	t.Setenv("OBJECT_STORE", "s3")
	_, _, err = store.OpenObjectStore(config.New())
	require.Error(t, err)
}

func TestOpenPublisherWithoutURLIsNop(t *testing.T) {
	t.Setenv("AMQP_URL", "")
	p, err := store.OpenPublisher(config.New())
	require.NoError(t, err)
	require.IsType(t, events.Nop{}, p)
}
