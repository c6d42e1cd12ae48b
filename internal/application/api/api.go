package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-softwarelab/common/pkg/to"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/account"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/processor"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/message"
	domainPayment "github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/metrics"
)

const (
	DefaultURL  = "https://api.mycryptocheckout.com/v2/"
	PurchaseURL = "https://mycryptocheckout.com/pricing/"

	PathRetrieveAccount = "account/retrieve"
)

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrNotJSONObject = errors.New("did not receive a JSON object from the API server")
)

type Options struct {
	URL            string
	ServerName     string
	Logger         *slog.Logger
	Metrics        *metrics.Counters
	Tenant         *domainPayment.Tenant
	AccountOptions []func(*account.Options)
}

// API composes the account and payment stores with the message processor
// and the transport to the payment server.
type API struct {
	url        string
	serverName string
	transport  contracts.Transport
	log        *slog.Logger

	account   *account.Store
	payments  *payment.Store
	processor *processor.Processor
}

func New(
	transport contracts.Transport,
	storage contracts.Storage,
	locker contracts.Locker,
	actions contracts.ActionExecutor,
	opts ...func(*Options),
) *API {
	cfg := to.OptionsWithDefault(Options{
		URL:     DefaultURL,
		Logger:  slog.Default(),
		Metrics: &metrics.Counters{},
	}, opts...)

	a := &API{
		url:        strings.TrimRight(cfg.URL, "/") + "/",
		serverName: cfg.ServerName,
		transport:  transport,
		log:        logging.Child(cfg.Logger, "API"),
	}

	accountOpts := append([]func(*account.Options){func(o *account.Options) {
		o.Logger = cfg.Logger
	}}, cfg.AccountOptions...)

	a.account = account.NewStore(storage, locker, accountOpts...)
	a.payments = payment.NewStore(
		payment.NewStorageRepository(storage),
		actions,
		locker,
		a,
		func(o *payment.Options) { o.Logger = cfg.Logger },
	)
	a.processor = processor.New(a.account, a.payments, func(o *processor.Options) {
		o.Logger = cfg.Logger
		o.Metrics = cfg.Metrics
		o.Tenant = cfg.Tenant
	})

	return a
}

func (a *API) Account() *account.Store {
	return a.account
}

func (a *API) Payments() *payment.Store {
	return a.payments
}

func (a *API) URL() string {
	return a.url
}

func (a *API) ServerName() string {
	return a.serverName
}

// PurchaseURL is the subscription page preselecting this server.
func (a *API) PurchaseURL() string {
	q := url.Values{}
	q.Set("domain", base64.StdEncoding.EncodeToString([]byte(a.serverName)))
	return PurchaseURL + "?" + q.Encode()
}

// ProcessMessages decodes and applies an envelope received from the server.
func (a *API) ProcessMessages(ctx context.Context, body []byte) (processor.Report, error) {
	env, err := message.Parse(body)
	if err != nil {
		return processor.Report{}, err
	}
	return a.processor.Process(ctx, env)
}

// Process applies an already decoded envelope.
func (a *API) Process(ctx context.Context, env *message.Envelope) (processor.Report, error) {
	return a.processor.Process(ctx, env)
}

// SendGet calls path on the server and decodes the JSON object reply.
func (a *API) SendGet(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	body, err := a.transport.SendGet(ctx, a.url+path)
	if err != nil {
		return nil, connectivity(path, err)
	}
	return parseResponse(path, body)
}

// SendPost posts fields to path and decodes the JSON object reply.
func (a *API) SendPost(ctx context.Context, path string, fields map[string]string) (map[string]json.RawMessage, error) {
	body, err := a.transport.SendPost(ctx, a.url+path, fields)
	if err != nil {
		return nil, connectivity(path, err)
	}
	return parseResponse(path, body)
}

// SendWithAccount posts fields with our domain and domain key attached.
func (a *API) SendWithAccount(ctx context.Context, path string, fields map[string]string) (map[string]json.RawMessage, error) {
	domainKey, err := a.account.DomainKey(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	merged["domain"] = a.serverName
	merged["domain_key"] = domainKey

	return a.SendPost(ctx, path, merged)
}

// RetrieveAccount asks the server to (re)send our account. A fresh retrieve
// key is stored first; a reply carrying messages is processed right away.
func (a *API) RetrieveAccount(ctx context.Context) (processor.Report, error) {
	key, err := a.account.NewRetrieveKey(ctx)
	if err != nil {
		return processor.Report{}, err
	}

	reply, err := a.SendPost(ctx, PathRetrieveAccount, map[string]string{
		"domain":       a.serverName,
		"retrieve_key": key,
	})
	if err != nil {
		return processor.Report{}, err
	}

	if _, ok := reply["messages"]; !ok {
		a.log.DebugContext(ctx, "account retrieval requested, waiting for server message")
		return processor.Report{}, nil
	}

	raw, err := json.Marshal(reply)
	if err != nil {
		return processor.Report{}, err
	}
	return a.ProcessMessages(ctx, raw)
}

func parseResponse(op string, body []byte) (map[string]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, connectivity(op, ErrEmptyResponse)
	}

	var obj map[string]json.RawMessage
	if body[0] != '{' || json.Unmarshal(body, &obj) != nil {
		return nil, connectivity(op, ErrNotJSONObject)
	}
	return obj, nil
}

func connectivity(op string, err error) error {
	var ce *contracts.ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &contracts.ConnectivityError{Op: op, Err: err}
}
