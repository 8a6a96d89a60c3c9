package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/service/sending"
)

type mockSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("0100-abc")}, nil
}

func testMessage() domain.OutboundMessage {
	return domain.OutboundMessage{
		From:    domain.SenderIdentity{Email: "noreply@contoso.com", Name: "Contoso"},
		To:      "alice@fabrikam.com",
		Subject: "Hello",
		Body:    "<b>hi</b>",
		IsHTML:  true,
	}
}

func TestSend_BuildsInput(t *testing.T) {
	api := &mockSES{}
	s := NewWithAPI(api, "notifications")

	require.NoError(t, s.Send(context.Background(), testMessage()))

	require.NotNil(t, api.input)
	assert.Equal(t, "Contoso <noreply@contoso.com>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"alice@fabrikam.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<b>hi</b>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Text)
	assert.Equal(t, "notifications", aws.ToString(api.input.ConfigurationSetName))
}

func TestSend_TextBody(t *testing.T) {
	api := &mockSES{}
	msg := testMessage()
	msg.IsHTML = false

	require.NoError(t, NewWithAPI(api, "").Send(context.Background(), msg))
	assert.Nil(t, api.input.Content.Simple.Body.Html)
	assert.Equal(t, "<b>hi</b>", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.ConfigurationSetName)
}

func TestSend_MessageRejectedIsRecipientError(t *testing.T) {
	api := &mockSES{err: &types.MessageRejected{Message: aws.String("Email address is not verified.")}}

	err := NewWithAPI(api, "").Send(context.Background(), testMessage())
	assert.True(t, sending.IsRecipientError(err))
	assert.Equal(t, domain.OutcomeFailedRecipient, sending.Classify(err).Kind)
}

func TestSend_OtherErrorsAreFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"paused", &types.SendingPausedException{Message: aws.String("paused")}, "SendingPausedException"},
		{"throttled", &types.TooManyRequestsException{Message: aws.String("slow")}, "TooManyRequestsException"},
		{"network", errors.New("dial tcp: i/o timeout"), "SESError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWithAPI(&mockSES{err: tt.err}, "").Send(context.Background(), testMessage())
			var te *sending.TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.wantCode, te.Code)
			assert.False(t, te.RecipientAttributable)
			assert.Equal(t, domain.OutcomeFailed, sending.Classify(err).Kind)
		})
	}
}
