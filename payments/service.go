package payments

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/internal/tx"
	"github.com/jrsteele09/go-property-market/internal/utils"
	"github.com/jrsteele09/go-property-market/notifications"
	"github.com/jrsteele09/go-property-market/properties"
	"github.com/jrsteele09/go-property-market/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repos holds the repositories a payment touches
type Repos struct {
	Payments   Repo
	Users      users.UserRepo
	Properties properties.Repo
}

type Service struct {
	repos    Repos
	txm      tx.Manager
	notifier notifications.Notifier
	nowTime  func() time.Time
}

type ServiceOption func(*Service)

func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repos Repos, txm tx.Manager, notifier notifications.Notifier, opts ...ServiceOption) (*Service, error) {
	if repos.Payments == nil {
		return nil, errors.New("[NewService] payments repo is required")
	}
	if repos.Users == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if repos.Properties == nil {
		return nil, errors.New("[NewService] properties repo is required")
	}
	if txm == nil {
		return nil, errors.New("[NewService] transaction manager is required")
	}
	if notifier == nil {
		return nil, errors.New("[NewService] notifier is required")
	}
	s := &Service{repos: repos, txm: txm, notifier: notifier, nowTime: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (r *PayRequest) normalise() error {
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if r.IdempotencyKey == "" {
		return apperrors.Validationf("idempotency key is required")
	}
	if len(r.IdempotencyKey) > maxIdempotencyKeyLen {
		return apperrors.Validationf("idempotency key must be at most %d characters", maxIdempotencyKeyLen)
	}
	if r.PropertyID == "" {
		return apperrors.Validationf("property_id is required")
	}
	switch r.Kind {
	case KindPurchase:
		r.Months = 0
	case KindRent:
		if r.Months == 0 {
			r.Months = 1
		}
		if r.Months < 1 || r.Months > MaxRentMonths {
			return apperrors.Validationf("months must be between 1 and %d", MaxRentMonths)
		}
	default:
		return apperrors.Validationf("kind must be purchase or rent")
	}
	switch r.Method {
	case "":
		r.Method = MethodCard
	case MethodCard, MethodBankTransfer, MethodCash:
	default:
		return apperrors.Validationf("unknown payment method %q", r.Method)
	}
	return nil
}

// Pay buys or rents a property. The transaction, both ledger entries and the property's
// status change commit together. Replaying an idempotency key returns the original
// transaction with created=false.
func (s *Service) Pay(ctx context.Context, buyer *users.User, req PayRequest) (*TransactionDetails, bool, error) {
	if err := req.normalise(); err != nil {
		return nil, false, err
	}

	var (
		details *TransactionDetails
		created bool
	)
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.repos.Payments.GetByIdempotencyKey(ctx, buyer.ID, req.IdempotencyKey)
		if err == nil {
			details, err = s.replay(ctx, existing, req)
			return err
		}
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return errors.Wrap(err, "[Pay] idempotency lookup")
		}

		details, err = s.pay(ctx, buyer.ID, req)
		created = err == nil
		return err
	})
	if err != nil && !created {
		// a concurrent request with the same key may have committed first. Depending on where
		// the two met this surfaces as a duplicate key or as the property already being taken.
		if existing, lookupErr := s.repos.Payments.GetByIdempotencyKey(ctx, buyer.ID, req.IdempotencyKey); lookupErr == nil {
			details, err = s.replay(ctx, existing, req)
		}
	}
	if err != nil {
		return nil, false, err
	}

	if created {
		s.notifyParties(ctx, details.Transaction)
	}
	return details, created, nil
}

func (s *Service) replay(ctx context.Context, existing *Transaction, req PayRequest) (*TransactionDetails, error) {
	if existing.PropertyID != req.PropertyID || existing.Kind != req.Kind {
		return nil, errors.Wrap(apperrors.ErrConflict, "idempotency key was used for a different payment")
	}
	entries, err := s.repos.Payments.EntriesFor(ctx, existing.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Pay] load entries")
	}
	return &TransactionDetails{Transaction: existing, Entries: entries}, nil
}

func (s *Service) pay(ctx context.Context, buyerID string, req PayRequest) (*TransactionDetails, error) {
	buyer, err := s.repos.Users.GetByID(ctx, buyerID)
	if err != nil {
		return nil, errors.Wrap(err, "[Pay] buyer")
	}
	if buyer.Blocked {
		return nil, apperrors.ErrUserBlocked
	}
	if buyer.Role != users.RoleTenant {
		return nil, errors.Wrap(apperrors.ErrForbidden, "only tenants can pay for properties")
	}

	property, err := s.repos.Properties.Get(ctx, req.PropertyID)
	if err != nil {
		return nil, errors.Wrap(err, "[Pay] property")
	}
	if property.Status != properties.StatusAvailable {
		return nil, apperrors.ErrPropertyUnavailable
	}
	wantListing := properties.ListingSale
	if req.Kind == KindRent {
		wantListing = properties.ListingRent
	}
	if property.ListingType != wantListing {
		return nil, apperrors.Validationf("property is listed for %s", property.ListingType)
	}

	owner, err := s.repos.Users.GetByID(ctx, property.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "[Pay] owner")
	}
	if owner.ID == buyer.ID {
		return nil, apperrors.Validationf("cannot pay for your own property")
	}

	amount := property.Price
	newStatus := properties.StatusSold
	if req.Kind == KindRent {
		if property.Price > math.MaxInt64/int64(req.Months) {
			return nil, apperrors.Validationf("amount overflows")
		}
		amount = property.Price * int64(req.Months)
		newStatus = properties.StatusRented
	}

	now := s.nowTime().UTC()
	t := &Transaction{
		ID:             uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		BuyerID:        buyer.ID,
		OwnerID:        owner.ID,
		PropertyID:     property.ID,
		Kind:           req.Kind,
		Months:         req.Months,
		Amount:         amount,
		Currency:       property.Currency,
		Method:         req.Method,
		Status:         StatusCompleted,
		CreatedAt:      now,
	}
	entries := []LedgerEntry{
		{ID: uuid.NewString(), TransactionID: t.ID, UserID: buyer.ID, Direction: Debit, Amount: amount, Currency: t.Currency, CreatedAt: now},
		{ID: uuid.NewString(), TransactionID: t.ID, UserID: owner.ID, Direction: Credit, Amount: amount, Currency: t.Currency, CreatedAt: now},
	}

	if err := s.repos.Properties.SetStatus(ctx, property.ID, properties.StatusAvailable, newStatus, now); err != nil {
		return nil, errors.Wrap(err, "[Pay] claim property")
	}
	if err := s.repos.Payments.CreateTransaction(ctx, t); err != nil {
		return nil, errors.Wrap(err, "[Pay] create transaction")
	}
	if err := s.repos.Payments.CreateEntries(ctx, entries); err != nil {
		return nil, errors.Wrap(err, "[Pay] create ledger entries")
	}

	log.Info().Str("transaction_id", t.ID).Str("property_id", t.PropertyID).Str("buyer_id", t.BuyerID).
		Int64("amount", t.Amount).Str("currency", t.Currency).Msg("payment completed")
	return &TransactionDetails{Transaction: t, Entries: entries}, nil
}

func (s *Service) notifyParties(ctx context.Context, t *Transaction) {
	amount := FormatAmount(t.Amount, t.Currency)
	verb := "purchase"
	if t.Kind == KindRent {
		verb = fmt.Sprintf("rent (%d months)", t.Months)
	}
	if err := s.notifier.Notify(ctx, t.BuyerID, notifications.KindPaymentSent, "Payment sent",
		fmt.Sprintf("You paid %s for the %s of property %s.", amount, verb, t.PropertyID)); err != nil {
		log.Error().Err(err).Str("transaction_id", t.ID).Msg("failed to notify buyer")
	}
	if err := s.notifier.Notify(ctx, t.OwnerID, notifications.KindPaymentReceived, "Payment received",
		fmt.Sprintf("You received %s for the %s of property %s.", amount, verb, t.PropertyID)); err != nil {
		log.Error().Err(err).Str("transaction_id", t.ID).Msg("failed to notify owner")
	}
}

// Get returns a transaction with its entries to the buyer, the owner or an admin
func (s *Service) Get(ctx context.Context, actor *users.User, id string) (*TransactionDetails, error) {
	t, err := s.repos.Payments.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.BuyerID != actor.ID && t.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	entries, err := s.repos.Payments.EntriesFor(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Get] entries")
	}
	return &TransactionDetails{Transaction: t, Entries: entries}, nil
}

// ListForUser lists transactions where the user paid or was paid, newest first
func (s *Service) ListForUser(ctx context.Context, userID string, offset, limit int) (ListResponse, error) {
	offset, limit = utils.ClampPage(offset, limit)
	items, total, err := s.repos.Payments.ListForUser(ctx, userID, offset, limit)
	if err != nil {
		return ListResponse{}, errors.Wrap(err, "[ListForUser]")
	}
	if items == nil {
		items = []*Transaction{}
	}
	return ListResponse{Transactions: items, Total: total, Offset: offset, Limit: limit}, nil
}

func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	entries, err := s.repos.Payments.EntriesForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Summary]")
	}
	summary := &Summary{UserID: userID, ByCurrency: map[string]Totals{}, EntryCount: len(entries)}
	for _, e := range entries {
		totals := summary.ByCurrency[e.Currency]
		switch e.Direction {
		case Debit:
			totals.Debited += e.Amount
			summary.TotalDebited += e.Amount
		case Credit:
			totals.Credited += e.Amount
			summary.TotalCredited += e.Amount
		}
		summary.ByCurrency[e.Currency] = totals
	}
	return summary, nil
}

// VerifyLedger checks that a transaction's debits equal its credits and its amount
func (s *Service) VerifyLedger(ctx context.Context, transactionID string) (*LedgerBalance, error) {
	t, err := s.repos.Payments.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Payments.EntriesFor(ctx, transactionID)
	if err != nil {
		return nil, errors.Wrap(err, "[VerifyLedger] entries")
	}
	balance := &LedgerBalance{TransactionID: transactionID, Entries: len(entries)}
	for _, e := range entries {
		switch e.Direction {
		case Debit:
			balance.Debits += e.Amount
		case Credit:
			balance.Credits += e.Amount
		}
	}
	balance.Balanced = len(entries) >= 2 && balance.Debits == balance.Credits && balance.Debits == t.Amount
	return balance, nil
}

// FormatAmount renders minor units with two decimals, e.g. 123456 USD as "1234.56 USD"
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
