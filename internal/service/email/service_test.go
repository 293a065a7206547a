package email

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edushare/internal/config"
	"edushare/internal/domain"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{FromEmail: "noreply@edushare.test", Domain: "edushare.test", DefaultLocale: "en"}
}

func TestSendNotificationEmail(t *testing.T) {
	ctx := context.Background()
	recipient := &domain.User{Username: "alice", Email: "alice@example.com"}
	notif := &domain.Notification{Message: "Unfortunately, your request for 'Dune' was rejected by the owner."}

	t.Run("Success", func(t *testing.T) {
		sender := new(mockSender)
		svc := NewServiceWithSender(sender, testConfig())

		sender.On("Send", mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
			return req.To[0] == "alice@example.com" &&
				req.Subject == "EduShare: Dune" &&
				req.From == "EduShare <noreply@edushare.test>" &&
				assert.Contains(t, req.Html, "rejected by the owner") &&
				assert.Contains(t, req.Html, "http://edushare.test/notifications")
		})).Return(&resend.SendEmailResponse{Id: "1"}, nil).Once()

		err := svc.SendNotificationEmail(ctx, recipient, notif, "Dune")

		assert.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("Provider failure", func(t *testing.T) {
		sender := new(mockSender)
		svc := NewServiceWithSender(sender, testConfig())
		sender.On("Send", mock.Anything).Return(nil, errors.New("rate limited")).Once()

		err := svc.SendNotificationEmail(ctx, recipient, notif, "Dune")

		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("Recipient without email is skipped", func(t *testing.T) {
		sender := new(mockSender)
		svc := NewServiceWithSender(sender, testConfig())

		err := svc.SendNotificationEmail(ctx, &domain.User{Username: "bob"}, notif, "Dune")

		assert.NoError(t, err)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})
}
