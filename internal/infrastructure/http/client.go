package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
)

const userAgent = "mycryptocheckout-go"

type ClientConfig struct {
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Client is the transport to the payment server. Every call is bounded by
// the configured timeout, on top of the caller's context.
type Client struct {
	http *resty.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if cfg.RetryWait > 0 {
		client.SetRetryWaitTime(cfg.RetryWait)
	}
	if cfg.RetryMaxWait > 0 {
		client.SetRetryMaxWaitTime(cfg.RetryMaxWait)
	}

	return &Client{http: client}
}

func (c *Client) SendGet(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	return body("GET "+url, resp, err)
}

func (c *Client) SendPost(ctx context.Context, url string, fields map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(fields).
		Post(url)
	return body("POST "+url, resp, err)
}

func body(op string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &contracts.ConnectivityError{Op: op, Err: err}
	}
	if resp.IsError() {
		return nil, &contracts.ConnectivityError{
			Op:  op,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	return resp.Body(), nil
}
