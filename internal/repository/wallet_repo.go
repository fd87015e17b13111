package repository

import (
	"context"
	"errors"

	"fursa/internal/domain"
	"fursa/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

// EntryMeta tags a ledger entry with its origin and correlation reference.
type EntryMeta struct {
	Source    string
	Reference string
}

// WalletRepository is the ledger store: balances are only ever touched
// together with an appended entry, inside one transaction, with the account
// row locked.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uint) (*models.WalletAccount, error) {
	var a models.WalletAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	a = models.WalletAccount{UserID: userID, Balance: decimal.Zero, Currency: "SAR"}
	if err := r.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *WalletRepository) Entries(ctx context.Context, userID uint, limit, offset int) ([]models.WalletEntry, error) {
	a, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	var list []models.WalletEntry
	err = r.db.WithContext(ctx).Where("account_id = ?", a.ID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// lockAccount loads the account row FOR UPDATE, creating it first if needed.
func (r *WalletRepository) lockAccount(tx *gorm.DB, userID uint) (*models.WalletAccount, error) {
	var a models.WalletAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&a).Error
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	a = models.WalletAccount{UserID: userID, Balance: decimal.Zero, Currency: "SAR"}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *WalletRepository) applyTx(tx *gorm.DB, account *models.WalletAccount, amount decimal.Decimal, kind domain.EntryKind, meta EntryMeta) error {
	entry := models.WalletEntry{
		AccountID: account.ID,
		Amount:    amount,
		Kind:      kind,
		Confirmed: true,
		Source:    meta.Source,
		Reference: meta.Reference,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	newBalance := account.Balance.Add(amount)
	if err := tx.Model(account).Update("balance", newBalance).Error; err != nil {
		return err
	}
	account.Balance = newBalance
	return nil
}

// DepositTx credits userID inside the caller's transaction.
func (r *WalletRepository) DepositTx(tx *gorm.DB, userID uint, amount decimal.Decimal, meta EntryMeta) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a, err := r.lockAccount(tx, userID)
	if err != nil {
		return err
	}
	return r.applyTx(tx, a, amount, domain.EntryDeposit, meta)
}

func (r *WalletRepository) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, meta EntryMeta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.DepositTx(tx, userID, amount, meta)
	})
}

// WithdrawTx debits userID inside the caller's transaction. The balance check
// and the debit happen under the same row lock.
func (r *WalletRepository) WithdrawTx(tx *gorm.DB, userID uint, amount decimal.Decimal, meta EntryMeta) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	a, err := r.lockAccount(tx, userID)
	if err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return r.applyTx(tx, a, amount.Neg(), domain.EntryWithdraw, meta)
}

func (r *WalletRepository) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, meta EntryMeta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.WithdrawTx(tx, userID, amount, meta)
	})
}

// Transfer moves amount between two profiles: an out-entry and an in-entry
// sharing one correlation reference, committed atomically. Rows are locked in
// user-id order so concurrent opposite transfers cannot deadlock.
func (r *WalletRepository) Transfer(ctx context.Context, fromUserID, toUserID uint, amount decimal.Decimal, meta EntryMeta) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if fromUserID == toUserID {
		return errors.New("cannot transfer to the same account")
	}
	if meta.Reference == "" {
		meta.Reference = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		accounts := map[uint]*models.WalletAccount{}
		for _, id := range []uint{first, second} {
			a, err := r.lockAccount(tx, id)
			if err != nil {
				return err
			}
			accounts[id] = a
		}
		from, to := accounts[fromUserID], accounts[toUserID]
		if from.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		if err := r.applyTx(tx, from, amount.Neg(), domain.EntryTransferOut, meta); err != nil {
			return err
		}
		return r.applyTx(tx, to, amount, domain.EntryTransferIn, meta)
	})
}
