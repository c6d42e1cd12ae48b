package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-softwarelab/common/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	orderApplication "github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/processor"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/message"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
	httpapi "github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/persistence/inmemory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProcessor struct {
	processFn func(ctx context.Context, body []byte) (processor.Report, error)
}

func (f *fakeProcessor) ProcessMessages(ctx context.Context, body []byte) (processor.Report, error) {
	return f.processFn(ctx, body)
}

type fakeSender struct {
	sendFn func(ctx context.Context, ref string) (int64, error)
}

func (f *fakeSender) Send(ctx context.Context, ref string) (int64, error) {
	return f.sendFn(ctx, ref)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReceiveMessages_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusOK},
		{name: "not an object", err: message.ErrNotAnObject, want: http.StatusBadRequest},
		{name: "no messages", err: message.ErrNoMessages, want: http.StatusBadRequest},
		{name: "forged retrieve key", err: &contracts.AuthenticationError{Got: "x"}, want: http.StatusForbidden},
		{name: "unknown type", err: &contracts.UnknownMessageError{Index: 0, Type: "bogus", Err: message.ErrUnknownType}, want: http.StatusUnprocessableEntity},
		{name: "storage failure", err: errors.New("disk full"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &httpapi.Handler{
				Messages: &fakeProcessor{processFn: func(context.Context, []byte) (processor.Report, error) {
					return processor.Report{}, tt.err
				}},
				Logger: slogx.NewTestLogger(t),
			}
			router := httpapi.NewRouter(handler, "")

			rec := do(t, router, http.MethodPost, httpapi.DefaultWebhookPath, `{}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestReceiveMessages_ReportsAppliedAndStale(t *testing.T) {
	var got []byte
	handler := &httpapi.Handler{
		Messages: &fakeProcessor{processFn: func(_ context.Context, body []byte) (processor.Report, error) {
			got = body
			return processor.Report{
				Stale: &contracts.StaleEnvelopeError{Reason: contracts.StaleDomainKeyMismatch},
			}, nil
		}},
	}
	router := httpapi.NewRouter(handler, "/hook")

	rec := do(t, router, http.MethodPost, "/hook", `{"mycryptocheckout":"WRONG","messages":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":0,"applied":0,"ignored":"domain_key_mismatch"}`, rec.Body.String())
	assert.JSONEq(t, `{"mycryptocheckout":"WRONG","messages":[]}`, string(got))
}

func TestReceiveMessages_CountsFailedMessages(t *testing.T) {
	handler := &httpapi.Handler{
		Messages: &fakeProcessor{processFn: func(context.Context, []byte) (processor.Report, error) {
			return processor.Report{Outcomes: []processor.Outcome{
				{Index: 0, Type: message.TypeCancelPayment, Err: errors.New("invalid amount true")},
				{Index: 1, Type: message.TypeCancelPayment, Err: &contracts.ActionNotAppliedError{PaymentID: 2}},
				{Index: 2, Type: message.TypeCancelPayment, Applied: 1},
			}}, nil
		}},
	}
	router := httpapi.NewRouter(handler, "")

	rec := do(t, router, http.MethodPost, httpapi.DefaultWebhookPath, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":3,"applied":1,"failed":1}`, rec.Body.String())
}

func TestPlaceOrder(t *testing.T) {
	handler := &httpapi.Handler{
		Orders: &orderApplication.Service{Repo: inmemory.NewOrderRepository()},
	}
	router := httpapi.NewRouter(handler, "")

	body := `{"ref":"order-1","amount":"1.25","currency_id":"BTC","to":"bc1q","data":{"note":"x"}}`

	rec := do(t, router, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order-1", resp["ref"])
	assert.Equal(t, string(order.StatusPending), resp["status"])

	rec = do(t, router, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/orders", `{"ref":"order-2","amount":"0","currency_id":"BTC","to":"bc1q"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/orders", `{"amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOrder(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		err  error
		want int
	}{
		{name: "sent", id: 12, want: http.StatusOK},
		{name: "unknown order", err: order.ErrOrderNotFound, want: http.StatusNotFound},
		{name: "server down", err: &contracts.ConnectivityError{Op: "payment/add", Err: errors.New("timeout")}, want: http.StatusBadGateway},
		{name: "given up", err: &contracts.RetryBudgetExceededError{OrderRef: "o", Attempts: 49}, want: http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRef string
			handler := &httpapi.Handler{
				Sender: &fakeSender{sendFn: func(_ context.Context, ref string) (int64, error) {
					gotRef = ref
					return tt.id, tt.err
				}},
			}
			router := httpapi.NewRouter(handler, "")

			rec := do(t, router, http.MethodPost, "/orders/order-9/send", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "order-9", gotRef)
			if tt.err == nil {
				assert.JSONEq(t, `{"payment_id":12}`, rec.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := httpapi.NewRouter(&httpapi.Handler{}, "")

	rec := do(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "envelopes_processed")
}
