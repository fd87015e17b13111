package service

import (
	"context"
	"errors"
	"time"

	"fursa/internal/domain"
	"fursa/internal/events"
	"fursa/internal/models"
	"fursa/internal/repository"

	"github.com/google/uuid"
)

// WalletService fronts the ledger for API callers: balance reads, entry
// history, withdrawals and peer transfers. Deposits only enter through
// settlement and distribution.
type WalletService struct {
	wallets *repository.WalletRepository
	sink    events.Sink
}

func NewWalletService(wallets *repository.WalletRepository, sink events.Sink) *WalletService {
	return &WalletService{wallets: wallets, sink: sink}
}

func (s *WalletService) Balance(ctx context.Context, userID uint) (*models.WalletAccount, error) {
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *WalletService) Entries(ctx context.Context, userID uint, limit, offset int) ([]models.WalletEntry, error) {
	return s.wallets.Entries(ctx, userID, limit, offset)
}

func (s *WalletService) Withdraw(ctx context.Context, userID uint, amountMinor int64) error {
	amount := domain.AmountFromMinor(amountMinor)
	err := s.wallets.Withdraw(ctx, userID, amount, repository.EntryMeta{
		Source:    "withdrawal_request",
		Reference: uuid.NewString(),
	})
	if err != nil {
		return mapLedgerErr(err)
	}
	s.publish(ctx, events.Event{
		Name:   events.WalletWithdrawn,
		UserID: userID,
		Data:   map[string]interface{}{"amount_minor": amountMinor},
	})
	return nil
}

func (s *WalletService) Transfer(ctx context.Context, fromUserID, toUserID uint, amountMinor int64) error {
	amount := domain.AmountFromMinor(amountMinor)
	err := s.wallets.Transfer(ctx, fromUserID, toUserID, amount, repository.EntryMeta{Source: "transfer"})
	if err != nil {
		return mapLedgerErr(err)
	}
	s.publish(ctx, events.Event{
		Name:   events.WalletTransferred,
		UserID: fromUserID,
		Data:   map[string]interface{}{"to_user_id": toUserID, "amount_minor": amountMinor},
	})
	return nil
}

func mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return domain.ErrInsufficientBalance()
	case errors.Is(err, repository.ErrNonPositiveAmount):
		return domain.NewError(domain.CodeProcessingFailed, "Amount must be positive")
	default:
		return err
	}
}

func (s *WalletService) publish(ctx context.Context, ev events.Event) {
	if s.sink == nil {
		return
	}
	ev.OccurredAt = time.Now()
	s.sink.Publish(ctx, ev)
}
