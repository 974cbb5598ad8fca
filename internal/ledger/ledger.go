// Package ledger moves transfer fees against club budgets. Every operation
// runs through the caller's transaction context: a reservation that cannot be
// committed alongside its transfer record is never observable.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	rostermodels "mercato/internal/roster/models"
	id "mercato/pkg/domain"
	dErrors "mercato/pkg/domain-errors"
	"mercato/pkg/platform/sentinel"
	"mercato/pkg/requestcontext"
)

// ClubStore is the slice of club persistence the ledger needs.
type ClubStore interface {
	FindByID(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error)
	Save(ctx context.Context, club *rostermodels.Club) error
}

// SellOnBeneficiary receives the amount withheld from a selling club's credit
// under a sell-on clause. Where that money lands is not specified by the
// domain; the default implementation keeps it out of both clubs' budgets.
type SellOnBeneficiary func(ctx context.Context, transferID id.TransferID, amount int64) error

// Ledger reserves, releases, and settles fee movements.
type Ledger struct {
	clubs       ClubStore
	logger      *slog.Logger
	beneficiary SellOnBeneficiary
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithSellOnBeneficiary routes sell-on deductions to an external recipient.
func WithSellOnBeneficiary(b SellOnBeneficiary) Option {
	return func(l *Ledger) { l.beneficiary = b }
}

// New constructs a Ledger over the club store.
func New(clubs ClubStore, opts ...Option) *Ledger {
	l := &Ledger{clubs: clubs}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve debits amount from the club's budget as a pending reservation.
// Fails with InsufficientFunds when amount exceeds the current budget.
func (l *Ledger) Reserve(ctx context.Context, clubID id.ClubID, amount int64) error {
	club, err := l.find(ctx, clubID)
	if err != nil {
		return err
	}
	if err := club.CanDebit(amount); err != nil {
		return err
	}
	club.ApplyDebit(amount, requestcontext.Now(ctx))
	if err := l.clubs.Save(ctx, club); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save budget reservation")
	}
	return nil
}

// Release credits back a previously reserved amount (cancellation path).
func (l *Ledger) Release(ctx context.Context, clubID id.ClubID, amount int64) error {
	if amount < 0 {
		return dErrors.New(dErrors.CodeValidation, "release amount cannot be negative")
	}
	club, err := l.find(ctx, clubID)
	if err != nil {
		return err
	}
	club.ApplyCredit(amount, requestcontext.Now(ctx))
	if err := l.clubs.Save(ctx, club); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save budget release")
	}
	return nil
}

// Settle finalizes a transfer fee: the selling club is credited originCredit
// (the fee minus any sell-on deduction) and the buying club's debit, already
// taken by Reserve, becomes final. The deduction, if any, goes to the
// configured beneficiary.
func (l *Ledger) Settle(ctx context.Context, transferID id.TransferID, fromClubID, toClubID id.ClubID, amount, originCredit int64) error {
	if originCredit < 0 || originCredit > amount {
		return dErrors.New(dErrors.CodeValidation, "origin credit must be between zero and the fee")
	}
	// The destination club was debited at reservation time; touching it again
	// here would double-charge. Only verify it still exists.
	if _, err := l.find(ctx, toClubID); err != nil {
		return err
	}

	from, err := l.find(ctx, fromClubID)
	if err != nil {
		return err
	}
	from.ApplyCredit(originCredit, requestcontext.Now(ctx))
	if err := l.clubs.Save(ctx, from); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save settlement credit")
	}

	if deduction := amount - originCredit; deduction > 0 && l.beneficiary != nil {
		if err := l.beneficiary(ctx, transferID, deduction); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "sell-on beneficiary rejected deduction")
		}
	}
	return nil
}

func (l *Ledger) find(ctx context.Context, clubID id.ClubID) (*rostermodels.Club, error) {
	club, err := l.clubs.FindByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "club not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
	}
	return club, nil
}
