package notify

import (
	"context"
	"testing"
	"time"

	"lendhub/internal/events"
	"lendhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(1)
}

type mockItems struct {
	mock.Mock
}

func (m *mockItems) CreateItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockItems) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	args := m.Called(ctx, id)
	if item, ok := args.Get(0).(*models.Item); ok {
		return item, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockItems) UpdateItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockItems) ListItemsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.Item, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if items, ok := args.Get(0).([]*models.Item); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func payload() events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID: 77,
		ItemID:    10,
		OwnerID:   1,
		BookerID:  2,
		Status:    "WAITING",
		Start:     time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		End:       time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC),
	}
}

func messageText(c tgbotapi.Chattable) (int64, string) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return 0, ""
	}
	return msg.ChatID, msg.Text
}

func TestNotifier_BookingCreatedGoesToOwner(t *testing.T) {
	logger := zerolog.Nop()
	sender := new(mockSender)
	items := new(mockItems)
	items.On("GetItem", mock.Anything, int64(10)).Return(&models.Item{ID: 10, Name: "drill"}, nil)

	bus := events.NewEventBus()
	n := NewNotifier(sender, items, map[int64]int64{1: 555}, &logger)
	n.Register(bus)

	var gotChat int64
	var gotText string
	sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		gotChat, gotText = messageText(args.Get(0).(tgbotapi.Chattable))
	}).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, payload()))

	sender.AssertExpectations(t)
	assert.Equal(t, int64(555), gotChat)
	assert.Contains(t, gotText, "#77")
	assert.Contains(t, gotText, "drill")
}

func TestNotifier_DecisionGoesToBooker(t *testing.T) {
	logger := zerolog.Nop()
	items := new(mockItems)
	items.On("GetItem", mock.Anything, int64(10)).Return(&models.Item{ID: 10, Name: "drill"}, nil)

	t.Run("approval", func(t *testing.T) {
		sender := new(mockSender)
		bus := events.NewEventBus()
		n := NewNotifier(sender, items, map[int64]int64{2: 777}, &logger)
		n.Register(bus)

		var gotChat int64
		var gotText string
		sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
			gotChat, gotText = messageText(args.Get(0).(tgbotapi.Chattable))
		}).Return(tgbotapi.Message{}, nil).Once()

		require.NoError(t, bus.PublishJSON(events.EventBookingApproved, payload()))

		sender.AssertExpectations(t)
		assert.Equal(t, int64(777), gotChat)
		assert.Contains(t, gotText, "approved")
	})

	t.Run("rejection", func(t *testing.T) {
		sender := new(mockSender)
		bus := events.NewEventBus()
		n := NewNotifier(sender, items, map[int64]int64{2: 777}, &logger)
		n.Register(bus)

		var gotText string
		sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
			_, gotText = messageText(args.Get(0).(tgbotapi.Chattable))
		}).Return(tgbotapi.Message{}, nil).Once()

		require.NoError(t, bus.PublishJSON(events.EventBookingRejected, payload()))

		sender.AssertExpectations(t)
		assert.Contains(t, gotText, "rejected")
	})
}

func TestNotifier_UnboundUserIsSkipped(t *testing.T) {
	logger := zerolog.Nop()
	sender := new(mockSender)
	items := new(mockItems)
	items.On("GetItem", mock.Anything, mock.Anything).Return(&models.Item{ID: 10, Name: "drill"}, nil)

	bus := events.NewEventBus()
	n := NewNotifier(sender, items, map[int64]int64{}, &logger)
	n.Register(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, payload()))

	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestNotifier_FallsBackToItemNumber(t *testing.T) {
	logger := zerolog.Nop()
	sender := new(mockSender)
	items := new(mockItems)
	items.On("GetItem", mock.Anything, int64(10)).Return(nil, context.DeadlineExceeded)

	bus := events.NewEventBus()
	n := NewNotifier(sender, items, map[int64]int64{1: 555}, &logger)
	n.Register(bus)

	var gotText string
	sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		_, gotText = messageText(args.Get(0).(tgbotapi.Chattable))
	}).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, payload()))
	assert.Contains(t, gotText, "item #10")
}
