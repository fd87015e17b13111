package service

import (
	"context"
	"encoding/json"

	"fursa/internal/events"
	"fursa/internal/models"
	"fursa/internal/repository"
)

// NotificationService persists in-app notifications. It sits on the event
// bus as a sink, so settlement and distribution never call it directly.
type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	return s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListByUserID(userID, limit, offset)
}

func (s *NotificationService) MarkRead(id, userID uint) error {
	return s.repo.MarkRead(id, userID)
}

// Publish implements events.Sink. Events without a user have nobody to
// notify and are dropped here; the log sink still records them.
func (s *NotificationService) Publish(_ context.Context, ev events.Event) {
	if ev.UserID == 0 {
		return
	}
	title, body := notificationText(ev)
	if title == "" {
		return
	}
	_ = s.Notify(ev.UserID, ev.Name, title, body, ev.Data)
}

func notificationText(ev events.Event) (title, body string) {
	switch ev.Name {
	case events.WalletCharged:
		return "Wallet topped up", "Your payment was received and your wallet has been credited."
	case events.WalletWithdrawn:
		return "Withdrawal requested", "Your withdrawal has been recorded."
	case events.WalletTransferred:
		return "Transfer sent", "Your transfer has been completed."
	case events.InvestmentPurchased:
		return "Investment confirmed", "Your payment was received and your shares have been allocated."
	case events.InvestmentUpdated:
		return "Investment increased", "Additional shares have been added to your investment."
	case events.MerchandiseArrived:
		return "Merchandise arrived", "The merchandise for your investment has arrived."
	case events.ProfitDistributed:
		return "Profit distributed", "Your investment has been settled and the payout credited to your wallet."
	case events.PaymentFailed:
		return "Payment failed", "Your payment did not go through. No money was taken."
	default:
		return "", ""
	}
}
