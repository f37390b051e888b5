package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"orgconsole/internal/adapters/http/perf"
	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// Endpoint paths. Path templates double as perf keys.
const (
	pathBulkMemberships = "/api/student-memberships/bulk"
	pathMemberships     = "/api/student-memberships"
	pathBulkPayment     = "/api/merch-customers/bulk-payment"
	pathMerchCustomers  = "/api/merch-customers/{merchID}"
	pathCustomersExport = "/api/merch-customers/{merchID}/export"
)

// Client talks JSON to the organization backend.
type Client struct {
	base      string
	token     string
	http      *http.Client
	collector *perf.Collector
}

// NewClient creates a backend client. httpClient and collector may be nil.
// PRE: base is an absolute URL
// POST: Returns a client that sends token as a bearer credential
func NewClient(base, token string, httpClient *http.Client, collector *perf.Collector) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultHTTPConfig())
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		token:     strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")),
		http:      httpClient,
		collector: collector,
	}
}

// Token returns the configured bearer token.
func (c *Client) Token() string {
	return c.token
}

// BulkCreateMemberships enrolls students for one academic year.
// PRE: req.StudentIDs is non-empty and req.YearStart < req.YearEnd
// POST: Returns the memberships the backend created, possibly fewer than requested
func (c *Client) BulkCreateMemberships(ctx context.Context, req BulkMembershipRequest) ([]membership.Membership, error) {
	var out []membershipDTO
	if err := c.post(ctx, pathBulkMemberships, pathBulkMemberships, req, &out); err != nil {
		return nil, err
	}
	created := make([]membership.Membership, len(out))
	for i, d := range out {
		created[i] = d.toDomain()
	}
	return created, nil
}

// BulkMerchPayment records one merch purchase per student.
// PRE: req.Entries is non-empty, req.MerchVariantItemID > 0, req.Quantity >= 1
// POST: Returns the orders the backend created, possibly fewer than requested
func (c *Client) BulkMerchPayment(ctx context.Context, req BulkPaymentRequest) ([]merch.Order, error) {
	var out []orderDTO
	if err := c.post(ctx, pathBulkPayment, pathBulkPayment, req, &out); err != nil {
		return nil, err
	}
	orders := make([]merch.Order, len(out))
	for i, d := range out {
		orders[i] = d.toDomain()
	}
	return orders, nil
}

// MembershipQuery selects one page of memberships.
type MembershipQuery struct {
	Page  int
	Size  int
	Query string
}

// ListMemberships fetches one page of memberships.
func (c *Client) ListMemberships(ctx context.Context, q MembershipQuery) (Page[membership.Membership], error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if s := strings.TrimSpace(q.Query); s != "" {
		v.Set("q", s)
	}
	var out Page[membershipDTO]
	if err := c.getJSON(ctx, pathMemberships+"?"+v.Encode(), pathMemberships, &out); err != nil {
		return Page[membership.Membership]{}, err
	}
	return mapPage(out, membershipDTO.toDomain), nil
}

// CustomerQuery selects one page of a merch's customers.
type CustomerQuery struct {
	Page   int
	Size   int
	Status string
}

// ListMerchCustomers fetches one page of customers for a merch.
func (c *Client) ListMerchCustomers(ctx context.Context, merchID int64, q CustomerQuery) (Page[merch.Customer], error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if s := strings.TrimSpace(q.Status); s != "" {
		v.Set("status", s)
	}
	path := "/api/merch-customers/" + strconv.FormatInt(merchID, 10) + "?" + v.Encode()
	var out Page[customerDTO]
	if err := c.getJSON(ctx, path, pathMerchCustomers, &out); err != nil {
		return Page[merch.Customer]{}, err
	}
	return mapPage(out, customerDTO.toDomain), nil
}

// ExportMerchCustomers fetches every customer of a merch.
func (c *Client) ExportMerchCustomers(ctx context.Context, merchID int64) ([]merch.Customer, error) {
	path := "/api/merch-customers/" + strconv.FormatInt(merchID, 10) + "/export"
	var out []customerDTO
	if err := c.getJSON(ctx, path, pathCustomersExport, &out); err != nil {
		return nil, err
	}
	customers := make([]merch.Customer, len(out))
	for i, d := range out {
		customers[i] = d.toDomain()
	}
	return customers, nil
}

func (c *Client) post(ctx context.Context, path, key string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, key, buf, out)
}

func (c *Client) getJSON(ctx context.Context, path, key string, out any) error {
	return c.do(ctx, http.MethodGet, path, key, nil, out)
}

func (c *Client) do(ctx context.Context, method, path, key string, body *bytes.Buffer, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, key, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.record(method+" "+key, status, start)
	if err != nil {
		slog.Warn("backend_request_failed", "method", method, "path", key, "err", err)
		return fmt.Errorf("%s %s: %w", method, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := newAPIError(method, key, resp)
		slog.Warn("backend_request_rejected", "method", method, "path", key, "status", apiErr.Status, "reason", apiErr.Reason, "message", apiErr.Message)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, key, err)
	}
	return nil
}

func (c *Client) record(path string, status int, start time.Time) {
	c.collector.Record(perf.Entry{
		Kind:       perf.KindBackend,
		Path:       path,
		StatusCode: status,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
}
