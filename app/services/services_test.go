package services

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingChannel struct{}

func (failingChannel) Deliver(context.Context, Notification) error {
	return errors.New("smtp down")
}

func TestNotificationService(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &RecordingChannel{}
	svc := NewNotificationService(NewLogChannel(zap.New(core)), rec)

	err := svc.Notify(context.Background(), Notification{
		Kind:        NotifyInquiryAssigned,
		RecipientID: utils.ToPtr(uint(4)),
		Subject:     "Tata Nexon 2022",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{NotifyInquiryAssigned}, rec.Kinds())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "notification", logs.All()[0].Message)

	t.Run("RequiresRecipient", func(t *testing.T) {
		err := svc.Notify(context.Background(), Notification{Kind: NotifyInquiryCreated})
		assert.Error(t, err)
	})

	t.Run("JoinsChannelErrors", func(t *testing.T) {
		failing := NewNotificationService(failingChannel{}, rec)
		err := failing.Notify(context.Background(), Notification{Kind: NotifyInquiryCreated, RecipientRole: "admin"})
		assert.ErrorContains(t, err, "smtp down")
		assert.Equal(t, NotifyInquiryCreated, rec.Sent[len(rec.Sent)-1].Kind)
	})
}

func TestTemplateSummarizer(t *testing.T) {
	s := NewTemplateSummarizer()
	car := &models.Car{
		Brand: "Tata", Model: "Nexon", Year: 2022, Color: "Blue",
		Fuel: models.FuelTypePetrol, Transmission: models.TransmissionManual,
		EngineCC: 1199, KmRun: 15000, Ownership: 1, Price: 900000,
		Badges: models.BadgeSet{models.CarBadgePriceDrop},
	}

	text, err := s.Summarize(context.Background(), car)
	require.NoError(t, err)
	assert.Contains(t, text, "2022 Tata Nexon in blue")
	assert.Contains(t, text, "single owner")
	assert.Contains(t, text, "Price recently dropped.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Summarize(ctx, car)
	assert.ErrorIs(t, err, context.Canceled)
}
