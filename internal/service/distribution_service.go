package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"fursa/internal/domain"
	"fursa/internal/events"
	"fursa/internal/models"
	"fursa/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TxRunner is satisfied by *gorm.DB; tests substitute a stub.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// ProfitRecorder is the opportunity-side surface of the distribution flow.
type ProfitRecorder interface {
	GetByID(ctx context.Context, id uint) (*models.Opportunity, error)
	RecordActualProfitTx(tx *gorm.DB, id uint, perShare, netPerShare decimal.Decimal) error
}

// DistributionStore is the investment-side surface of the distribution flow.
type DistributionStore interface {
	GetByID(ctx context.Context, id uint) (*models.Investment, error)
	MarkMerchandiseArrived(ctx context.Context, id uint, at time.Time) (bool, error)
	CascadeActualProfitTx(tx *gorm.DB, opportunityID uint, perShare, netPerShare decimal.Decimal) (int64, error)
	PendingDistributions(ctx context.Context, opportunityID uint) ([]models.Investment, error)
	FinalizeDistributionTx(tx *gorm.DB, id uint, amount decimal.Decimal, at time.Time) (bool, error)
}

// DistributionReport summarizes one distribution run. A run with failures is
// simply re-run; already-paid investments skip.
type DistributionReport struct {
	OpportunityID uint   `json:"opportunity_id"`
	Distributed   int    `json:"distributed"`
	Skipped       int    `json:"skipped"`
	Failed        []uint `json:"failed,omitempty"`
}

// DistributionService closes out investments after the merchandise cycle:
// arrival for myself investors, recorded profit and wallet payout for
// authorize investors.
type DistributionService struct {
	db            TxRunner
	opportunities ProfitRecorder
	investments   DistributionStore
	ledger        Ledger
	sink          events.Sink
}

func NewDistributionService(db TxRunner, opportunities ProfitRecorder, investments DistributionStore, ledger Ledger, sink events.Sink) *DistributionService {
	return &DistributionService{db: db, opportunities: opportunities, investments: investments, ledger: ledger, sink: sink}
}

// MarkMerchandiseArrived records delivery for a myself investment. Repeated
// calls are no-ops.
func (s *DistributionService) MarkMerchandiseArrived(ctx context.Context, investmentID uint) (*models.Investment, error) {
	inv, err := s.investments.GetByID(ctx, investmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.CodeProcessingFailed, "Investment not found")
		}
		return nil, err
	}
	if inv.Mode != domain.ModeMyself {
		return nil, domain.NewError(domain.CodeProcessingFailed, "Merchandise tracking applies to self-managed investments only")
	}
	flipped, err := s.investments.MarkMerchandiseArrived(ctx, investmentID, time.Now())
	if err != nil {
		return nil, err
	}
	if flipped {
		s.publish(ctx, events.Event{
			Name:   events.MerchandiseArrived,
			UserID: inv.UserID,
			Data:   map[string]interface{}{"investment_id": inv.ID, "opportunity_id": inv.OpportunityID},
		})
	}
	return s.investments.GetByID(ctx, investmentID)
}

// RecordActualProfit stores the realized per-share figures once and cascades
// them onto every authorize investment in the same transaction. Returns how
// many investments received the figures.
func (s *DistributionService) RecordActualProfit(ctx context.Context, opportunityID uint, perShare, netPerShare decimal.Decimal) (int64, error) {
	if netPerShare.GreaterThan(perShare) {
		return 0, domain.NewError(domain.CodeProcessingFailed, "Net profit cannot exceed gross profit")
	}
	var cascaded int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.opportunities.RecordActualProfitTx(tx, opportunityID, perShare, netPerShare); err != nil {
			if errors.Is(err, repository.ErrProfitAlreadySet) {
				return domain.ErrProfitAlreadyRecorded()
			}
			return err
		}
		n, err := s.investments.CascadeActualProfitTx(tx, opportunityID, perShare, netPerShare)
		if err != nil {
			return err
		}
		cascaded = n
		return nil
	})
	return cascaded, err
}

// Distribute pays out every pending authorize investment of an opportunity:
// shares times the recorded net profit per share, credited to the investor's
// wallet. Each investment settles in its own transaction where the
// pending->distributed flip and the wallet credit commit together, so a crash
// mid-batch never double-pays and the batch can be re-run to finish the rest.
func (s *DistributionService) Distribute(ctx context.Context, opportunityID uint) (*DistributionReport, error) {
	o, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if o.ActualNetProfit == nil {
		return nil, domain.ErrProfitNotRecorded()
	}
	netPerShare := *o.ActualNetProfit

	pending, err := s.investments.PendingDistributions(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	report := &DistributionReport{OpportunityID: opportunityID}
	for i := range pending {
		inv := pending[i]
		profit := netPerShare.Mul(decimal.NewFromInt(int64(inv.Shares)))
		var flipped bool
		err := s.db.Transaction(func(tx *gorm.DB) error {
			ok, err := s.investments.FinalizeDistributionTx(tx, inv.ID, profit, time.Now())
			if err != nil {
				return err
			}
			flipped = ok
			if !ok {
				return nil
			}
			return s.ledger.DepositTx(tx, inv.UserID, profit, repository.EntryMeta{
				Source:    "profit_distribution",
				Reference: fmt.Sprintf("dist-%d-%d", opportunityID, inv.ID),
			})
		})
		if err != nil {
			log.Printf("[distribution] investment %d failed: %v", inv.ID, err)
			report.Failed = append(report.Failed, inv.ID)
			continue
		}
		if !flipped {
			report.Skipped++
			continue
		}
		report.Distributed++
		s.publish(ctx, events.Event{
			Name:   events.ProfitDistributed,
			UserID: inv.UserID,
			Data: map[string]interface{}{
				"investment_id":  inv.ID,
				"opportunity_id": opportunityID,
				"profit":         profit.StringFixed(2),
			},
		})
	}
	return report, nil
}

func (s *DistributionService) publish(ctx context.Context, ev events.Event) {
	if s.sink == nil {
		return
	}
	ev.OccurredAt = time.Now()
	s.sink.Publish(ctx, ev)
}
