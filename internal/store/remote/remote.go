// Package remote implements the invoice and customer stores against a running shop-ledger
// server over its JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store"
)

// ErrUsersUnsupported is returned by the user methods; accounts are managed on the server.
var ErrUsersUnsupported = errors.New("user management is not available over the remote backend")

// Client is a store.Store backed by the HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ store.Store = (*Client)(nil)

// New returns a client for baseURL (for example http://localhost:8080) that authenticates with
// a bearer token.
func New(baseURL, token string) *Client {
	return NewWithHTTPClient(baseURL, token, &http.Client{Timeout: 15 * time.Second})
}

// NewWithHTTPClient is New with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL, token string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, token: token, http: hc}
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type apiError struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// do sends body as JSON and decodes a 2xx response into out (when non-nil). Failures are mapped
// onto the core error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", core.ErrUpstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
		return nil
	}
	return responseError(method, path, resp)
}

func responseError(method, path string, resp *http.Response) error {
	var e apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
	msg := e.Error
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", core.ErrUnauthorized, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: %s", core.ErrUpstreamUnavailable, method, path, msg)
	}
	if known := core.ErrorForCode(e.Code); known != nil {
		return fmt.Errorf("%s: %w", msg, known)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, core.ErrRecordNotFound)
	}
	return fmt.Errorf("%s %s: %s (%d)", method, path, msg, resp.StatusCode)
}

func shopQuery(shopID string) url.Values {
	if shopID == "" {
		return nil
	}
	return url.Values{"shop_id": {shopID}}
}

// --- Invoices ---

type invoiceEnvelope struct {
	Invoice core.Invoice `json:"invoice"`
}

func (c *Client) ListInvoices(ctx context.Context, shopID string) ([]core.Invoice, error) {
	var out struct {
		Invoices []core.Invoice `json:"invoices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sync/invoices", shopQuery(shopID), nil, &out); err != nil {
		return nil, err
	}
	if out.Invoices == nil {
		out.Invoices = []core.Invoice{}
	}
	return out.Invoices, nil
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*core.Invoice, error) {
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/invoices/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (c *Client) CreateInvoice(ctx context.Context, inv core.Invoice) (*core.Invoice, error) {
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/invoices", nil, inv, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*core.Invoice, error) {
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/invoices/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/invoices/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AddPayment(ctx context.Context, id string, in core.PaymentInput) (*core.PaymentResult, error) {
	var out core.PaymentResult
	if err := c.do(ctx, http.MethodPost, "/api/invoices/"+url.PathEscape(id)+"/payments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordReminder records an already delivered reminder; the server does not deliver it again.
func (c *Client) RecordReminder(ctx context.Context, id string, in core.ReminderInput) (*core.Invoice, error) {
	body := struct {
		core.ReminderInput
		Deliver bool `json:"deliver"`
	}{ReminderInput: in, Deliver: false}
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/invoices/"+url.PathEscape(id)+"/reminders", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

// --- Customers ---

type customerEnvelope struct {
	Customer core.Customer `json:"customer"`
}

func (c *Client) ListCustomers(ctx context.Context, shopID string) ([]core.Customer, error) {
	var out struct {
		Customers []core.Customer `json:"customers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/customers", shopQuery(shopID), nil, &out); err != nil {
		return nil, err
	}
	if out.Customers == nil {
		out.Customers = []core.Customer{}
	}
	return out.Customers, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	var out customerEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/customers/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

func (c *Client) CreateCustomer(ctx context.Context, cust core.Customer) (*core.Customer, error) {
	var out customerEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/customers", nil, cust, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

// --- Users ---

func (c *Client) GetByUsername(context.Context, string) (*core.User, error) {
	return nil, ErrUsersUnsupported
}

func (c *Client) GetByID(context.Context, int) (*core.User, error) {
	return nil, ErrUsersUnsupported
}

func (c *Client) CreateUser(context.Context, core.User, string) (*core.User, error) {
	return nil, ErrUsersUnsupported
}
