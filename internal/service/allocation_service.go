package service

import (
	"context"
	"errors"

	"fursa/internal/domain"
	"fursa/internal/models"
	"fursa/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OpportunityStore is the share-pool surface the allocator needs.
type OpportunityStore interface {
	GetByID(ctx context.Context, id uint) (*models.Opportunity, error)
	GetForUpdateTx(tx *gorm.DB, id uint) (*models.Opportunity, error)
	ReserveSharesTx(tx *gorm.DB, id uint, shares int) error
	MarkFundedTx(tx *gorm.DB, id uint) error
}

type InvestmentStore interface {
	FindByUserAndOpportunity(ctx context.Context, userID, opportunityID uint) (*models.Investment, error)
	FindForUpdateTx(tx *gorm.DB, userID, opportunityID uint) (*models.Investment, error)
	SaveTx(tx *gorm.DB, inv *models.Investment) error
}

// Quote prices a share purchase. The service fee applies per share and only
// when the investor takes the merchandise themselves.
type Quote struct {
	UnitPrice  decimal.Decimal
	Principal  decimal.Decimal
	ServiceFee decimal.Decimal
	Total      decimal.Decimal
}

func PriceQuote(unitPrice, feePerShare decimal.Decimal, shares int, mode domain.InvestmentMode) Quote {
	n := decimal.NewFromInt(int64(shares))
	q := Quote{UnitPrice: unitPrice, Principal: unitPrice.Mul(n)}
	if mode == domain.ModeMyself {
		q.ServiceFee = feePerShare.Mul(n)
	}
	q.Total = q.Principal.Add(q.ServiceFee)
	return q
}

// AllocationService validates and applies share purchases. Prevalidate runs at
// initiation against a plain read; ApplyPurchaseTx re-validates under row
// locks inside the settlement transaction, so the money only moves when the
// shares actually exist.
type AllocationService struct {
	opportunities OpportunityStore
	investments   InvestmentStore
}

func NewAllocationService(opportunities OpportunityStore, investments InvestmentStore) *AllocationService {
	return &AllocationService{opportunities: opportunities, investments: investments}
}

// validate applies the purchase rules in a fixed order so callers always see
// the most specific failure: open pool, not the owner, share bounds, then
// availability. heldShares counts the user's already-allocated shares.
func validate(o *models.Opportunity, userID uint, shares int, mode domain.InvestmentMode, heldShares int) error {
	if !o.Status.Fundable() {
		return domain.ErrOpportunityNotAvailable()
	}
	if o.OwnerID == userID {
		return domain.ErrOwnOpportunityInvestment()
	}
	if !mode.Valid() || shares < o.MinShares || heldShares+shares > o.MaxShares {
		return domain.ErrInvalidShares(o.MinShares, o.MaxShares)
	}
	if shares > o.AvailableShares {
		return domain.ErrInsufficientShares(o.AvailableShares)
	}
	return nil
}

// Prevalidate checks a prospective purchase and prices it. It gives the
// caller an early, friendly failure; the settlement-time re-check remains the
// authority.
func (s *AllocationService) Prevalidate(ctx context.Context, userID, opportunityID uint, shares int, mode domain.InvestmentMode) (*Quote, error) {
	o, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOpportunityNotAvailable()
		}
		return nil, err
	}
	existing, err := s.investments.FindByUserAndOpportunity(ctx, userID, opportunityID)
	if err != nil {
		return nil, err
	}
	held := 0
	if existing != nil {
		if existing.Mode != mode {
			return nil, domain.ErrModeMismatch()
		}
		held = existing.Shares
	}
	if err := validate(o, userID, shares, mode, held); err != nil {
		return nil, err
	}
	q := PriceQuote(o.SharePrice, o.ServiceFee, shares, mode)
	return &q, nil
}

// ApplyPurchaseTx allocates shares inside the caller's transaction. Lock
// order is opportunity row first, then the investment row, matching every
// other writer of these tables. A repeat purchase merges into the existing
// investment at its snapshotted share price.
func (s *AllocationService) ApplyPurchaseTx(tx *gorm.DB, userID uint, ex models.InvestmentExtras) (*models.Investment, error) {
	o, err := s.opportunities.GetForUpdateTx(tx, ex.OpportunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOpportunityNotAvailable()
		}
		return nil, err
	}
	existing, err := s.investments.FindForUpdateTx(tx, userID, ex.OpportunityID)
	if err != nil {
		return nil, err
	}
	held := 0
	if existing != nil {
		if existing.Mode != ex.Mode {
			return nil, domain.ErrModeMismatch()
		}
		held = existing.Shares
	}
	if err := validate(o, userID, ex.Shares, ex.Mode, held); err != nil {
		return nil, err
	}
	if err := s.opportunities.ReserveSharesTx(tx, ex.OpportunityID, ex.Shares); err != nil {
		if errors.Is(err, repository.ErrNotEnoughShares) {
			return nil, domain.ErrInsufficientShares(o.AvailableShares)
		}
		return nil, err
	}

	unitPrice := ex.PricePerShare
	if existing != nil {
		unitPrice = existing.SharePrice
	}
	q := PriceQuote(unitPrice, o.ServiceFee, ex.Shares, ex.Mode)

	inv := existing
	if inv == nil {
		inv = &models.Investment{
			UserID:         userID,
			OpportunityID:  ex.OpportunityID,
			SharePrice:     unitPrice,
			Mode:           ex.Mode,
			Status:         domain.InvestmentActive,
			ExpectedProfit: o.ExpectedProfit,
		}
	}
	inv.Shares += ex.Shares
	inv.TotalInvestment = inv.TotalInvestment.Add(q.Principal)
	inv.TotalPayment = inv.TotalPayment.Add(q.Total)
	if err := s.investments.SaveTx(tx, inv); err != nil {
		return nil, err
	}
	if o.AvailableShares == ex.Shares {
		if err := s.opportunities.MarkFundedTx(tx, ex.OpportunityID); err != nil {
			return nil, err
		}
	}
	return inv, nil
}
