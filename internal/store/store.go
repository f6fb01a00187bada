// Package store chooses the repository, object storage and event backends from configuration.
package store

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-property-market/complaints"
	complaintrepofake "github.com/jrsteele09/go-property-market/complaints/repofake"
	"github.com/jrsteele09/go-property-market/events"
	"github.com/jrsteele09/go-property-market/internal/database"
	"github.com/jrsteele09/go-property-market/internal/tx"
	"github.com/jrsteele09/go-property-market/notifications"
	notificationrepofake "github.com/jrsteele09/go-property-market/notifications/repofake"
	"github.com/jrsteele09/go-property-market/objectstore"
	fsstore "github.com/jrsteele09/go-property-market/objectstore/fs"
	memstore "github.com/jrsteele09/go-property-market/objectstore/memory"
	"github.com/jrsteele09/go-property-market/objectstore/supabase"
	"github.com/jrsteele09/go-property-market/otp"
	otprepofake "github.com/jrsteele09/go-property-market/otp/repofake"
	"github.com/jrsteele09/go-property-market/payments"
	paymentrepofake "github.com/jrsteele09/go-property-market/payments/repofake"
	"github.com/jrsteele09/go-property-market/properties"
	propertyrepofake "github.com/jrsteele09/go-property-market/properties/repofake"
	"github.com/jrsteele09/go-property-market/reviews"
	reviewrepofake "github.com/jrsteele09/go-property-market/reviews/repofake"
	"github.com/jrsteele09/go-property-market/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-property-market/token/refresh/repofake"
	"github.com/jrsteele09/go-property-market/users"
	fakeuserrepo "github.com/jrsteele09/go-property-market/users/repofake"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = database.DriverSQLite
	DriverPostgres = database.DriverPostgres

	ObjectStoreFS       = "fs"
	ObjectStoreSupabase = "supabase"
	ObjectStoreMemory   = "memory"
)

// Repos is every repository the services need plus the transaction manager that spans them
type Repos struct {
	Users         users.UserRepo
	OTPs          otp.Repo
	RefreshTokens refresh.Repo
	Properties    properties.Repo
	Payments      payments.Repo
	Reviews       reviews.Repo
	Complaints    complaints.Repo
	Notifications notifications.Repo
	Tx            tx.Manager

	close func() error
}

type Settings interface {
	GetStoreDriver() string
	GetDatabaseURL() string
}

// Open builds the repositories for the configured driver. SQL drivers are migrated on open.
func Open(cfg Settings) (*Repos, error) {
	driver := cfg.GetStoreDriver()
	switch driver {
	case DriverMemory:
		return Memory(), nil
	case DriverSQLite, DriverPostgres:
		db, err := database.Open(driver, cfg.GetDatabaseURL())
		if err != nil {
			return nil, errors.Wrap(err, "[store.Open] database")
		}
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, errors.Wrap(err, "[store.Open] migrate")
		}
		log.Info().Str("driver", driver).Msg("database ready")
		return &Repos{
			Users:         database.NewUserRepo(db),
			OTPs:          database.NewOTPRepo(db),
			RefreshTokens: database.NewRefreshTokenRepo(db),
			Properties:    database.NewPropertyRepo(db),
			Payments:      database.NewPaymentRepo(db),
			Reviews:       database.NewReviewRepo(db),
			Complaints:    database.NewComplaintRepo(db),
			Notifications: database.NewNotificationRepo(db),
			Tx:            database.NewTxManager(db),
			close:         func() error { return database.Close(db) },
		}, nil
	}
	return nil, fmt.Errorf("[store.Open] unknown store driver %q", driver)
}

// Memory returns process-local repositories. Nothing survives a restart.
func Memory() *Repos {
	return &Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		OTPs:          otprepofake.NewFakeOTPRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
		Properties:    propertyrepofake.NewFakePropertyRepo(),
		Payments:      paymentrepofake.NewFakePaymentRepo(),
		Reviews:       reviewrepofake.NewFakeReviewRepo(),
		Complaints:    complaintrepofake.NewFakeComplaintRepo(),
		Notifications: notificationrepofake.NewFakeNotificationRepo(),
		Tx:            &tx.Locking{},
	}
}

func (r *Repos) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

type ObjectStoreSettings interface {
	GetObjectStore() string
	GetSupabaseURL() string
	GetSupabaseServiceKey() string
	GetSupabaseBucket() string
	GetDataFolder() string
	GetPublicBaseURL() string
}

// OpenObjectStore builds the image store. The handler is non-nil only for stores the API
// must serve itself under /media/.
func OpenObjectStore(cfg ObjectStoreSettings) (objectstore.Store, http.HandlerFunc, error) {
	switch kind := cfg.GetObjectStore(); kind {
	case ObjectStoreFS:
		s, err := fsstore.New(filepath.Join(cfg.GetDataFolder(), "media"), cfg.GetPublicBaseURL())
		if err != nil {
			return nil, nil, errors.Wrap(err, "[store.OpenObjectStore] fs")
		}
		return s, s.Handler(), nil
	case ObjectStoreSupabase:
		s, err := supabase.New(supabase.Config{
			ProjectURL: cfg.GetSupabaseURL(),
			ServiceKey: cfg.GetSupabaseServiceKey(),
			Bucket:     cfg.GetSupabaseBucket(),
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "[store.OpenObjectStore] supabase")
		}
		return s, nil, nil
	case ObjectStoreMemory:
		s := memstore.New(cfg.GetPublicBaseURL())
		return s, s.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("[store.OpenObjectStore] unknown object store %q", kind)
	}
}

type PublisherSettings interface {
	GetAMQPURL() string
	GetAMQPExchange() string
}

// OpenPublisher connects to RabbitMQ when AMQP_URL is set and otherwise discards events
func OpenPublisher(cfg PublisherSettings) (events.Publisher, error) {
	url := cfg.GetAMQPURL()
	if url == "" {
		log.Info().Msg("AMQP_URL not set, domain events are discarded")
		return events.Nop{}, nil
	}
	p, err := events.NewAMQPPublisher(url, cfg.GetAMQPExchange())
	if err != nil {
		return nil, errors.Wrap(err, "[store.OpenPublisher] amqp")
	}
	return p, nil
}
