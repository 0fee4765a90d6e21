package email

import (
	"context"
	"errors"
	"testing"

	"github.com/resendlabs/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outbox struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (o *outbox) send(req *resend.SendEmailRequest) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.sent = append(o.sent, req)
	return "msg_1", nil
}

func newTestService(t *testing.T, box *outbox) *EmailService {
	t.Helper()
	svc, err := newEmailService(Config{FromAddress: "features@thetankguide.com", FromName: "Tank Guide"}, box.send, zap.NewNop())
	require.NoError(t, err)
	return svc
}

var notice = Notice{
	SubmissionID: "FT-0012",
	Name:         "Riley",
	Email:        "riley@example.com",
	TankName:     "Blackwater Creek",
	TotalPrice:   5,
	Credits:      6,
}

func TestSubmissionReceived(t *testing.T) {
	box := &outbox{}
	svc := newTestService(t, box)

	require.NoError(t, svc.SubmissionReceived(context.Background(), notice))
	require.Len(t, box.sent, 1)
	msg := box.sent[0]
	assert.Equal(t, []string{"riley@example.com"}, msg.To)
	assert.Equal(t, "Tank Guide <features@thetankguide.com>", msg.From)
	assert.Contains(t, msg.Subject, "Blackwater Creek")
	assert.Contains(t, msg.Html, "FT-0012")
}

func TestPaymentConfirmed(t *testing.T) {
	box := &outbox{}
	svc := newTestService(t, box)

	require.NoError(t, svc.PaymentConfirmed(context.Background(), notice))
	require.Len(t, box.sent, 1)
	assert.Contains(t, box.sent[0].Html, "$5")
	assert.Contains(t, box.sent[0].Html, "<strong>6</strong> editing credits")
}

func TestPublished(t *testing.T) {
	box := &outbox{}
	svc := newTestService(t, box)

	err := svc.Published(context.Background(), PublishedNotice{
		Notice:           notice,
		PublishedURL:     "https://thetankguide.com/features/blackwater-creek",
		RemainingCredits: 4,
	})
	require.NoError(t, err)
	require.Len(t, box.sent, 1)
	assert.Contains(t, box.sent[0].Html, "https://thetankguide.com/features/blackwater-creek")
	assert.Contains(t, box.sent[0].Html, "<strong>4</strong>")
}

func TestSendFailureIsReturned(t *testing.T) {
	box := &outbox{err: errors.New("rate limited")}
	svc := newTestService(t, box)

	assert.Error(t, svc.SubmissionReceived(context.Background(), notice))
}
