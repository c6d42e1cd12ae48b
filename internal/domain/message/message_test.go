package message_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/message"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  error
		wantNil  bool
		wantLen  int
		wantEcho string
	}{
		{name: "not an object", body: `[1,2]`, wantErr: message.ErrNotAnObject},
		{name: "empty", body: ``, wantErr: message.ErrNotAnObject},
		{name: "missing messages", body: `{"mycryptocheckout":"DK1"}`, wantNil: true, wantEcho: "DK1"},
		{name: "messages not an array", body: `{"messages":"x"}`, wantNil: true},
		{name: "empty messages", body: `{"mycryptocheckout":"DK1","messages":[]}`, wantEcho: "DK1"},
		{name: "numeric echo", body: `{"mycryptocheckout":12,"messages":[{"type":"update_account"}]}`, wantLen: 1, wantEcho: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := message.Parse([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEcho, env.DomainKeyEcho)
			if tt.wantNil {
				assert.Nil(t, env.Messages)
				return
			}
			require.NotNil(t, env.Messages)
			assert.Len(t, env.Messages, tt.wantLen)
		})
	}
}

func TestDecode(t *testing.T) {
	env, err := message.Parse([]byte(`{"messages":[
		{"type":"retrieve_account","retrieve_key":"K","account":{"domain_key":"DK"}},
		{"type":"update_account"},
		{"type":"payment_complete","payment":{"payment_id":"5","transaction_id":"0xT"}},
		{"type":"cancel_payment","payment":{"payment_id":6}},
		{"type":"bogus"}
	]}`))
	require.NoError(t, err)
	require.Len(t, env.Messages, 5)

	msg, err := env.Messages[0].Decode()
	require.NoError(t, err)
	retrieve := msg.(message.RetrieveAccount)
	assert.Equal(t, "K", retrieve.RetrieveKey)
	assert.JSONEq(t, `{"domain_key":"DK"}`, string(retrieve.Account))

	msg, err = env.Messages[1].Decode()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(msg.(message.UpdateAccount).Account))

	assert.Equal(t, message.TypeCompletePayment, env.Messages[2].Type)
	msg, err = env.Messages[2].Decode()
	require.NoError(t, err)
	complete := msg.(message.CompletePayment)
	assert.Equal(t, int64(5), complete.Payment.PaymentID)
	assert.Equal(t, "0xT", complete.Payment.TransactionID)

	msg, err = env.Messages[3].Decode()
	require.NoError(t, err)
	assert.Equal(t, int64(6), msg.(message.CancelPayment).Payment.PaymentID)
	assert.Equal(t, message.TypeCancelPayment, msg.Kind())

	_, err = env.Messages[4].Decode()
	var decodeErr *message.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, message.Type("bogus"), decodeErr.Type)
	assert.ErrorIs(t, err, message.ErrUnknownType)
}

func TestDecode_PaymentMessageWithoutPayment(t *testing.T) {
	raw := message.NewRaw([]byte(`{"type":"cancel_payment"}`))

	_, err := raw.Decode()
	assert.ErrorIs(t, err, message.ErrMissingPayment)
}
