package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-softwarelab/common/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/api"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/lock"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/persistence/inmemory"
)

type fakeTransport struct {
	getFn  func(ctx context.Context, url string) ([]byte, error)
	postFn func(ctx context.Context, url string, fields map[string]string) ([]byte, error)
}

func (f *fakeTransport) SendGet(ctx context.Context, url string) ([]byte, error) {
	return f.getFn(ctx, url)
}

func (f *fakeTransport) SendPost(ctx context.Context, url string, fields map[string]string) ([]byte, error) {
	return f.postFn(ctx, url, fields)
}

type noActions struct{}

func (noActions) Execute(context.Context, event.Event) (int, error) { return 0, nil }

func newAPI(t *testing.T, transport contracts.Transport) *api.API {
	t.Helper()
	return api.New(transport, inmemory.NewStorage(), lock.NewKeyed(), noActions{}, func(o *api.Options) {
		o.URL = "https://api.example/v2"
		o.ServerName = "shop.example"
		o.Logger = slogx.NewTestLogger(t)
	})
}

func TestAPI_SendWithAccountAttachesCredentials(t *testing.T) {
	ctx := context.Background()

	var gotURL string
	var gotFields map[string]string
	a := newAPI(t, &fakeTransport{postFn: func(_ context.Context, url string, fields map[string]string) ([]byte, error) {
		gotURL, gotFields = url, fields
		return []byte(`{"result":"ok"}`), nil
	}})
	require.NoError(t, a.Account().Adopt(ctx, json.RawMessage(`{"domain_key":"DK1"}`)))

	reply, err := a.SendWithAccount(ctx, "payment/add", map[string]string{"amount": "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(reply["result"]))

	assert.Equal(t, "https://api.example/v2/payment/add", gotURL)
	assert.Equal(t, map[string]string{"amount": "1", "domain": "shop.example", "domain_key": "DK1"}, gotFields)
}

func TestAPI_BadRepliesAreConnectivityErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
		err   error
	}{
		{name: "empty", reply: []byte("  ")},
		{name: "array", reply: []byte(`[1]`)},
		{name: "garbage", reply: []byte(`{not json`)},
		{name: "transport", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAPI(t, &fakeTransport{
				postFn: func(context.Context, string, map[string]string) ([]byte, error) { return tt.reply, tt.err },
				getFn:  func(context.Context, string) ([]byte, error) { return tt.reply, tt.err },
			})

			var connErr *contracts.ConnectivityError

			_, err := a.SendWithAccount(context.Background(), "payment/add", nil)
			assert.ErrorAs(t, err, &connErr)

			_, err = a.SendGet(context.Background(), "status")
			assert.ErrorAs(t, err, &connErr)
		})
	}
}

func TestAPI_RetrieveAccountProcessesReply(t *testing.T) {
	ctx := context.Background()

	a := newAPI(t, &fakeTransport{postFn: func(_ context.Context, url string, fields map[string]string) ([]byte, error) {
		assert.True(t, strings.HasSuffix(url, api.PathRetrieveAccount))
		assert.Equal(t, "shop.example", fields["domain"])

		reply := map[string]any{
			"mycryptocheckout": "DK9",
			"messages": []any{map[string]any{
				"type":         "retrieve_account",
				"retrieve_key": fields["retrieve_key"],
				"account":      map[string]any{"domain_key": "DK9", "plan": "free"},
			}},
		}
		return json.Marshal(reply)
	}})

	_, err := a.RetrieveAccount(ctx)
	require.NoError(t, err)

	acc, err := a.Account().Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DK9", acc.DomainKey)
	assert.True(t, acc.Valid())
}

func TestAPI_RetrieveAccountWithoutMessages(t *testing.T) {
	ctx := context.Background()
	a := newAPI(t, &fakeTransport{postFn: func(context.Context, string, map[string]string) ([]byte, error) {
		return []byte(`{"result":"ok"}`), nil
	}})

	_, err := a.RetrieveAccount(ctx)
	require.NoError(t, err)

	valid, err := a.Account().Valid(ctx)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestAPI_ProcessMessagesRejectsNonObject(t *testing.T) {
	a := newAPI(t, &fakeTransport{})

	_, err := a.ProcessMessages(context.Background(), []byte(`"nope"`))
	assert.Error(t, err)
}

func TestAPI_PurchaseURL(t *testing.T) {
	a := newAPI(t, &fakeTransport{})

	assert.Equal(t, "https://api.example/v2/", a.URL())
	assert.Equal(t, "https://mycryptocheckout.com/pricing/?domain=c2hvcC5leGFtcGxl", a.PurchaseURL())
}
