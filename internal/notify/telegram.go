package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the part of the bot API the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier pushes booking lifecycle events to the parties' Telegram chats.
// Chat bindings come from configuration; users without a binding are
// silently skipped.
type Notifier struct {
	sender TelegramSender
	items  domain.ItemDirectory
	chats  map[int64]int64
	logger *zerolog.Logger
}

func NewNotifier(sender TelegramSender, items domain.ItemDirectory, chats map[int64]int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		items:  items,
		chats:  chats,
		logger: logger,
	}
}

// Register subscribes the notifier to booking lifecycle events.
func (n *Notifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onBookingCreated)
	bus.Subscribe(events.EventBookingApproved, n.onBookingDecided)
	bus.Subscribe(events.EventBookingRejected, n.onBookingDecided)
}

func (n *Notifier) onBookingCreated(event *events.Event) error {
	payload, err := decodePayload(event)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("notify: decode payload")
		return err
	}

	text := fmt.Sprintf(
		"New booking request #%d\nItem: %s\nPeriod: %s - %s\nWaiting for your decision.",
		payload.BookingID,
		n.itemName(payload.ItemID),
		payload.Start.Format("2006-01-02 15:04"),
		payload.End.Format("2006-01-02 15:04"),
	)
	n.sendTo(payload.OwnerID, text)
	return nil
}

func (n *Notifier) onBookingDecided(event *events.Event) error {
	payload, err := decodePayload(event)
	if err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("notify: decode payload")
		return err
	}

	verdict := "rejected"
	if event.Type == events.EventBookingApproved {
		verdict = "approved"
	}

	text := fmt.Sprintf(
		"Your booking #%d for %s was %s.\nPeriod: %s - %s",
		payload.BookingID,
		n.itemName(payload.ItemID),
		verdict,
		payload.Start.Format("2006-01-02 15:04"),
		payload.End.Format("2006-01-02 15:04"),
	)
	n.sendTo(payload.BookerID, text)
	return nil
}

func (n *Notifier) sendTo(userID int64, text string) {
	chatID, ok := n.chats[userID]
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Error().Err(err).Int64("user_id", userID).Int64("chat_id", chatID).Msg("notify: telegram send")
	}
}

func (n *Notifier) itemName(itemID int64) string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	item, err := n.items.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Sprintf("item #%d", itemID)
	}
	return item.Name
}

func decodePayload(event *events.Event) (*events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode booking event: %w", err)
	}
	return &payload, nil
}
