// Package logicboxes provides a registrar.Client implementation backed by the
// LogicBoxes/ResellerClub HTTP API. Authentication is injected per request as
// auth-userid and api-key query parameters; responses are vendor JSON decoded
// into small structs and normalized at this boundary.
package logicboxes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"

	"github.com/shopspring/decimal"
)

// decimalFromVendor parses the vendor's string-encoded prices exactly.
func decimalFromVendor(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

const (
	defaultBaseURL = "https://httpapi.com/api"
	sandboxBaseURL = "https://test.httpapi.com/api"
)

// transferStatuses maps vendor transfer status strings into the fixed
// vocabulary. Unlisted statuses leave local state unchanged.
var transferStatuses = map[string]domain.DomainStatus{ //nolint: gochecknoglobals
	"pending":                domain.DomainStatusPendingTransfer,
	"transferinitiated":      domain.DomainStatusTransferInProgress,
	"inprogress":             domain.DomainStatusTransferInProgress,
	"pendingregistrarlock":   domain.DomainStatusTransferInProgress,
	"approved":               domain.DomainStatusTransferApproved,
	"success":                domain.DomainStatusTransferCompleted,
	"completed":              domain.DomainStatusTransferCompleted,
	"failed":                 domain.DomainStatusTransferFailed,
	"rejected":               domain.DomainStatusTransferFailed,
	"cancelled":              domain.DomainStatusTransferCancelled,
	"cancelledbycustomer":    domain.DomainStatusTransferCancelled,
	"cancelledbyregistrar":   domain.DomainStatusTransferFailed,
}

// Options configure a LogicBoxes client.
type Options struct {
	// Name is the registrar slug the client reports on responses.
	Name string
	// BaseURL overrides the API base URL; empty selects production or the
	// sandbox depending on TestMode.
	BaseURL string
	// UserID and APIKey are the reseller credentials.
	UserID string
	APIKey string
	// Timeout is the per-call deadline; <= 0 leaves the context untouched.
	Timeout time.Duration
	// TestMode points the client at the vendor sandbox.
	TestMode bool
}

// Client talks to the LogicBoxes HTTP API and fulfills the registrar.Client
// contract. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
	baseURL    string
}

// New constructs a Client using the provided http.Client and options.
func New(httpClient *http.Client, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		if opts.TestMode {
			baseURL = sandboxBaseURL
		} else {
			baseURL = defaultBaseURL
		}
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// NewFromConfig is the registry constructor for the "logicboxes" driver.
// Credentials: "userId", "apiKey".
func NewFromConfig(cfg registrar.Config) (registrar.Client, error) {
	userID := cfg.Credentials["userId"]
	apiKey := cfg.Credentials["apiKey"]
	if userID == "" || apiKey == "" {
		return nil, serrors.With(serrors.ErrInvalidData,
			"logicboxes registrar %q needs userId and apiKey credentials", cfg.Slug)
	}

	return New(&http.Client{}, Options{
		Name:     cfg.Slug,
		BaseURL:  cfg.BaseURL,
		UserID:   userID,
		APIKey:   apiKey,
		Timeout:  cfg.Timeout,
		TestMode: cfg.TestMode,
	}), nil
}

// Name returns the registrar slug.
func (c *Client) Name() string { return c.opts.Name }

// errorEnvelope is the vendor's generic failure shape.
type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// do performs one API call with auth injected, the configured deadline
// applied, and transport/HTTP failures classified into the taxonomy. It
// returns the raw body for operation-specific decoding.
func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("auth-userid", c.opts.UserID)
	params.Set("api-key", c.opts.APIKey)

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, serrors.Wrap(serrors.ErrTimeout, err, "logicboxes call timed out")
		}

		return nil, serrors.Wrap(serrors.ErrConnectionFailure, err, "could not reach logicboxes")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrConnectionFailure, err, "could not read response body")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, serrors.With(serrors.ErrAuthenticationFailure,
			"logicboxes rejected credentials: %s", strings.TrimSpace(string(b)))
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 30 * time.Second
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
			retryAfter = time.Duration(v) * time.Second
		}

		return nil, serrors.With(serrors.ErrRateLimited, "logicboxes rate limited").
			WithRetryAfter(retryAfter)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrOperationFailed,
			"logicboxes returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	// the vendor reports most failures as HTTP 200 with an error envelope
	var env errorEnvelope
	if err := json.Unmarshal(b, &env); err == nil && strings.EqualFold(env.Status, "ERROR") {
		return nil, classifyVendorMessage(env.Message)
	}

	return b, nil
}

// classifyVendorMessage maps a vendor error message into the taxonomy.
func classifyVendorMessage(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"):
		return serrors.With(serrors.ErrDomainNotFound, "%s", msg)
	case strings.Contains(lower, "invalid credential") || strings.Contains(lower, "authentication"):
		return serrors.With(serrors.ErrAuthenticationFailure, "%s", msg)
	case strings.Contains(lower, "rate") && strings.Contains(lower, "limit"):
		return serrors.With(serrors.ErrRateLimited, "%s", msg).WithRetryAfter(30 * time.Second)
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "required parameter"):
		return serrors.With(serrors.ErrInvalidData, "%s", msg)
	default:
		return serrors.With(serrors.ErrOperationFailed, "%s", msg)
	}
}

// splitName separates a fully-qualified name into the vendor's domain-name
// and tld parameters.
func splitName(name string) (string, string) {
	i := strings.Index(name, ".")
	if i < 0 {
		return name, ""
	}

	return name[:i], name[i+1:]
}

// epochTime parses the vendor's epoch-seconds string timestamps.
func epochTime(s string) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}

	return time.Unix(sec, 0).UTC()
}

func (c *Client) respond(raw []byte, r *registrar.Response) *registrar.Response {
	r.Raw = raw
	r.Registrar = c.opts.Name
	r.Timestamp = time.Now().UTC()

	return r
}

// CheckAvailability asks the vendor whether the domain can be registered.
func (c *Client) CheckAvailability(ctx context.Context, name string) (bool, error) {
	sld, tld := splitName(name)
	params := url.Values{}
	params.Set("domain-name", sld)
	params.Set("tlds", tld)

	b, err := c.do(ctx, http.MethodGet, "/domains/available.json", params)
	if err != nil {
		return false, err
	}

	// {"example.com": {"status": "available", "classkey": "domcno"}}
	var res map[string]struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return false, fmt.Errorf("could not decode availability response: %w", err)
	}

	return strings.EqualFold(res[name].Status, "available"), nil
}

// orderResponse is the vendor shape for register/renew/transfer orders.
type orderResponse struct {
	EntityID     json.Number `json:"entityid"`
	ActionStatus string      `json:"actionstatus"`
	Description  string      `json:"actionstatusdesc"`
}

func (o orderResponse) toResponse() *registrar.Response {
	success := strings.EqualFold(o.ActionStatus, "Success") ||
		strings.EqualFold(o.ActionStatus, "PendingExecution")
	r := &registrar.Response{
		Success: success,
		Message: o.Description,
		OrderID: o.EntityID.String(),
	}
	if !success && o.Description != "" {
		r.Errors = []string{o.Description}
	}

	return r
}

// Register places a registration order. The vendor returns an order entity
// id which callers keep to detect "already applied" on retry.
func (c *Client) Register(ctx context.Context, params registrar.RegisterParams) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", params.Name)
	v.Set("years", strconv.Itoa(params.Years))
	for _, ns := range params.Nameservers {
		v.Add("ns", ns)
	}
	for _, ct := range params.Contacts {
		if ct.Type == "registrant" {
			v.Set("registrant-email", ct.Email)
			v.Set("registrant-name", ct.Name)
		}
	}

	b, err := c.do(ctx, http.MethodPost, "/domains/register.json", v)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, fmt.Errorf("could not decode register response: %w", err)
	}

	return c.respond(b, order.toResponse()), nil
}

// Renew places a renewal order against the current expiry.
func (c *Client) Renew(ctx context.Context, name string, years int) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	v.Set("years", strconv.Itoa(years))

	b, err := c.do(ctx, http.MethodPost, "/domains/renew.json", v)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, fmt.Errorf("could not decode renew response: %w", err)
	}

	return c.respond(b, order.toResponse()), nil
}

// Transfer initiates a transfer-in with the losing registrar's auth code.
func (c *Client) Transfer(ctx context.Context, name, authCode string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	v.Set("auth-code", authCode)

	b, err := c.do(ctx, http.MethodPost, "/domains/transfer.json", v)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, fmt.Errorf("could not decode transfer response: %w", err)
	}

	res := order.toResponse()
	if res.Success {
		res.Transfer = &registrar.TransferDetail{
			Status:       domain.DomainStatusPendingTransfer,
			VendorStatus: order.ActionStatus,
		}
	}

	return c.respond(b, res), nil
}

// TransferStatus fetches the transfer state and maps the vendor status into
// the fixed vocabulary. Unrecognized statuses produce an empty Status so
// callers keep local state unchanged.
func (c *Client) TransferStatus(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	b, err := c.do(ctx, http.MethodGet, "/domains/transfer-status.json", v)
	if err != nil {
		return nil, err
	}

	var st struct {
		Status string `json:"transferstatus"`
		ETA    string `json:"estimatedcompletion"`
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("could not decode transfer status response: %w", err)
	}

	mapped, _ := registrar.MapTransferStatus(transferStatuses, strings.ToLower(st.Status))

	return c.respond(b, &registrar.Response{
		Success: true,
		Transfer: &registrar.TransferDetail{
			Status:       mapped,
			VendorStatus: st.Status,
			ETA:          epochTime(st.ETA),
		},
	}), nil
}

// CancelTransfer cancels an in-flight transfer order.
func (c *Client) CancelTransfer(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	b, err := c.do(ctx, http.MethodPost, "/domains/cancel-transfer.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode cancel response: %w", err)
	}

	return c.respond(b, &registrar.Response{
		Success: strings.EqualFold(res.Status, "Success"),
		Message: res.Status,
	}), nil
}

// AuthCode fetches the domain's transfer secret.
func (c *Client) AuthCode(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	b, err := c.do(ctx, http.MethodGet, "/domains/auth-code.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		AuthCode string `json:"authcode"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode auth code response: %w", err)
	}

	return c.respond(b, &registrar.Response{Success: res.AuthCode != "", AuthCode: res.AuthCode}), nil
}

// UpdateNameservers replaces the delegation set.
func (c *Client) UpdateNameservers(ctx context.Context, name string, nameservers []string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	for _, ns := range nameservers {
		v.Add("ns", ns)
	}

	b, err := c.do(ctx, http.MethodPost, "/domains/modify-ns.json", v)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, fmt.Errorf("could not decode modify-ns response: %w", err)
	}

	return c.respond(b, order.toResponse()), nil
}

// vendorContact is the vendor contact shape.
type vendorContact struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"emailaddr"`
	Phone   string `json:"telno"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Contacts fetches the contacts attached to the domain.
func (c *Client) Contacts(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	b, err := c.do(ctx, http.MethodGet, "/domains/contacts.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		Contacts []vendorContact `json:"contacts"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode contacts response: %w", err)
	}

	out := make([]domain.Contact, 0, len(res.Contacts))
	for _, vc := range res.Contacts {
		out = append(out, domain.Contact{
			Type:         vc.Type,
			Name:         vc.Name,
			Organization: vc.Company,
			Email:        vc.Email,
			Phone:        vc.Phone,
			City:         vc.City,
			Country:      vc.Country,
		})
	}

	return c.respond(b, &registrar.Response{Success: true, Contacts: out}), nil
}

// UpdateContacts replaces the contacts attached to the domain.
func (c *Client) UpdateContacts(ctx context.Context, name string, contacts []domain.Contact) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	for _, ct := range contacts {
		v.Add("contact-type", ct.Type)
		v.Add("contact-name", ct.Name)
		v.Add("contact-email", ct.Email)
	}

	b, err := c.do(ctx, http.MethodPost, "/domains/modify-contacts.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode modify-contacts response: %w", err)
	}

	return c.respond(b, &registrar.Response{
		Success: strings.EqualFold(res.Status, "Success"),
		Message: res.Status,
	}), nil
}

// vendorDNSRecord is the vendor resource record shape.
type vendorDNSRecord struct {
	Type     string      `json:"type"`
	Host     string      `json:"host"`
	Value    string      `json:"value"`
	TTL      json.Number `json:"timetolive"`
	Priority json.Number `json:"priority"`
}

// DNSRecords fetches the records managed at the registrar.
func (c *Client) DNSRecords(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	b, err := c.do(ctx, http.MethodGet, "/dns/manage/search-records.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		Records []vendorDNSRecord `json:"records"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode dns records response: %w", err)
	}

	out := make([]domain.DNSRecord, 0, len(res.Records))
	for _, vr := range res.Records {
		ttl, _ := vr.TTL.Int64()
		prio, _ := vr.Priority.Int64()
		out = append(out, domain.DNSRecord{
			Type:     strings.ToUpper(vr.Type),
			Host:     vr.Host,
			Value:    vr.Value,
			TTL:      int(ttl),
			Priority: int(prio),
		})
	}

	return c.respond(b, &registrar.Response{Success: true, Records: out}), nil
}

// UpdateDNSRecords replaces the records managed at the registrar.
func (c *Client) UpdateDNSRecords(ctx context.Context, name string, records []domain.DNSRecord) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	for _, r := range records {
		v.Add("record-type", r.Type)
		v.Add("record-host", r.Host)
		v.Add("record-value", r.Value)
		v.Add("record-ttl", strconv.Itoa(r.TTL))
	}

	b, err := c.do(ctx, http.MethodPost, "/dns/manage/update-records.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode update-records response: %w", err)
	}

	return c.respond(b, &registrar.Response{
		Success: strings.EqualFold(res.Status, "Success"),
		Message: res.Status,
	}), nil
}

// Info fetches the registrar-reported state of the domain.
func (c *Client) Info(ctx context.Context, name string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("domain-name", name)
	v.Set("options", "All")

	b, err := c.do(ctx, http.MethodGet, "/domains/details-by-name.json", v)
	if err != nil {
		return nil, err
	}

	var res struct {
		CurrentStatus string   `json:"currentstatus"`
		CreationTime  string   `json:"creationtime"`
		EndTime       string   `json:"endtime"`
		NS1           string   `json:"ns1"`
		NS2           string   `json:"ns2"`
		NS3           string   `json:"ns3"`
		NS4           string   `json:"ns4"`
		OrderStatus   []string `json:"orderstatus"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode details response: %w", err)
	}

	var ns []string
	for _, h := range []string{res.NS1, res.NS2, res.NS3, res.NS4} {
		if h != "" {
			ns = append(ns, strings.ToLower(h))
		}
	}
	locked := false
	for _, s := range res.OrderStatus {
		if strings.EqualFold(s, "transferlock") {
			locked = true
		}
	}

	return c.respond(b, &registrar.Response{
		Success: true,
		Info: &registrar.DomainInfo{
			Status:      strings.ToLower(res.CurrentStatus),
			CreatedAt:   epochTime(res.CreationTime),
			ExpiresAt:   epochTime(res.EndTime),
			Nameservers: ns,
			Locked:      locked,
		},
	}), nil
}

// SetLock toggles the vendor transfer lock.
func (c *Client) SetLock(ctx context.Context, name string, locked bool) (bool, error) {
	v := url.Values{}
	v.Set("domain-name", name)

	path := "/domains/enable-theft-protection.json"
	if !locked {
		path = "/domains/disable-theft-protection.json"
	}

	b, err := c.do(ctx, http.MethodPost, path, v)
	if err != nil {
		return false, err
	}

	var res struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return false, fmt.Errorf("could not decode lock response: %w", err)
	}
	if !strings.EqualFold(res.Status, "Success") {
		return !locked, serrors.With(serrors.ErrOperationFailed, "lock change failed: %s", res.Status)
	}

	return locked, nil
}

// TestConnection verifies credentials with a lightweight details call.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	_, err := c.do(ctx, http.MethodGet, "/resellers/details.json", url.Values{})
	if err != nil {
		if errors.Is(err, serrors.ErrAuthenticationFailure) {
			return false, err
		}
		// vendor reachable but grumpy still proves connectivity
		if errors.Is(err, serrors.ErrOperationFailed) {
			return true, nil
		}

		return false, err
	}

	return true, nil
}

// TLDPrices fetches the reseller's current price list.
func (c *Client) TLDPrices(ctx context.Context) (*registrar.Response, error) {
	b, err := c.do(ctx, http.MethodGet, "/products/reseller-price.json", url.Values{})
	if err != nil {
		return nil, err
	}

	// {"domcno": {"addnewdomain": {"1": "10.50"}, "renewdomain": {"1": "11.00"}, "tld": "com"}}
	var res map[string]struct {
		TLD   string            `json:"tld"`
		Add   map[string]string `json:"addnewdomain"`
		Renew map[string]string `json:"renewdomain"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode price response: %w", err)
	}

	var prices []domain.TLDPrice
	for _, p := range res {
		if p.TLD == "" {
			continue
		}
		if v, ok := p.Add["1"]; ok {
			if price, err := decimalFromVendor(v); err == nil {
				prices = append(prices, domain.TLDPrice{
					Registrar: c.opts.Name,
					TLD:       p.TLD,
					Action:    domain.ActionRegister,
					Price:     price,
					Currency:  "USD",
				})
			}
		}
		if v, ok := p.Renew["1"]; ok {
			if price, err := decimalFromVendor(v); err == nil {
				prices = append(prices, domain.TLDPrice{
					Registrar: c.opts.Name,
					TLD:       p.TLD,
					Action:    domain.ActionRenew,
					Price:     price,
					Currency:  "USD",
				})
			}
		}
	}

	return c.respond(b, &registrar.Response{Success: true, Prices: prices}), nil
}

// Ensure Client conforms to the contract at compile time.
var (
	_ registrar.Client      = (*Client)(nil)
	_ registrar.PriceLister = (*Client)(nil)
)
