// Package internetbs provides a registrar.Client implementation backed by the
// Internet.bs HTTP API. Authentication travels as ApiKey and Password form
// parameters on every request; responses are JSON with a shared
// status/message envelope.
package internetbs

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
)

const (
	defaultBaseURL = "https://api.internet.bs"
	sandboxBaseURL = "https://testapi.internet.bs"

	timeLayout = "2006/01/02"
)

// transferStatuses maps vendor transfer status strings into the fixed
// vocabulary. Unlisted statuses leave local state unchanged.
var transferStatuses = map[string]domain.DomainStatus{ //nolint: gochecknoglobals
	"pending initiation":  domain.DomainStatusPendingTransfer,
	"pending":             domain.DomainStatusPendingTransfer,
	"in progress":         domain.DomainStatusTransferInProgress,
	"awaiting registry":   domain.DomainStatusTransferInProgress,
	"approved":            domain.DomainStatusTransferApproved,
	"completed":           domain.DomainStatusTransferCompleted,
	"failed":              domain.DomainStatusTransferFailed,
	"registry rejected":   domain.DomainStatusTransferFailed,
	"cancelled":           domain.DomainStatusTransferCancelled,
	"cancelled by client": domain.DomainStatusTransferCancelled,
}

// Options configure an Internet.bs client.
type Options struct {
	// Name is the registrar slug the client reports on responses.
	Name string
	// BaseURL overrides the API base URL.
	BaseURL string
	// APIKey and Password are the account credentials.
	APIKey   string
	Password string
	// Timeout is the per-call deadline; <= 0 leaves the context untouched.
	Timeout time.Duration
	// TestMode points the client at the vendor sandbox.
	TestMode bool
}

// Client talks to the Internet.bs API and fulfills the registrar.Client
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

// NewFromConfig is the registry constructor for the "internetbs" driver.
// Credentials: "apiKey", "password".
func NewFromConfig(cfg registrar.Config) (registrar.Client, error) {
	apiKey := cfg.Credentials["apiKey"]
	password := cfg.Credentials["password"]
	if apiKey == "" || password == "" {
		return nil, serrors.With(serrors.ErrInvalidData,
			"internetbs registrar %q needs apiKey and password credentials", cfg.Slug)
	}

	return New(&http.Client{}, Options{
		Name:     cfg.Slug,
		BaseURL:  cfg.BaseURL,
		APIKey:   apiKey,
		Password: password,
		Timeout:  cfg.Timeout,
		TestMode: cfg.TestMode,
	}), nil
}

// Name returns the registrar slug.
func (c *Client) Name() string { return c.opts.Name }

// envelope is the vendor's shared response wrapper. Operation-specific
// fields are decoded separately from the same body.
type envelope struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	TransactID string `json:"transactid"`
}

// call posts one API command with credentials injected and classifies
// transport, HTTP and envelope failures into the taxonomy. The raw body is
// returned for operation-specific decoding alongside the parsed envelope.
func (c *Client) call(ctx context.Context, path string, params url.Values) ([]byte, envelope, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("ApiKey", c.opts.APIKey)
	params.Set("Password", c.opts.Password)
	params.Set("ResponseFormat", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, envelope{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, envelope{}, serrors.Wrap(serrors.ErrTimeout, err, "internetbs call timed out")
		}

		return nil, envelope{}, serrors.Wrap(serrors.ErrConnectionFailure, err, "could not reach internetbs")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, envelope{}, serrors.Wrap(serrors.ErrConnectionFailure, err, "could not read response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
			retryAfter = time.Duration(v) * time.Second
		}

		return nil, envelope{}, serrors.With(serrors.ErrRateLimited, "internetbs rate limited").
			WithRetryAfter(retryAfter)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, envelope{}, serrors.With(serrors.ErrOperationFailed,
			"internetbs returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, envelope{}, fmt.Errorf("could not decode response envelope: %w", err)
	}
	if strings.EqualFold(env.Status, "FAILURE") {
		return nil, env, classifyVendorMessage(env.Message)
	}

	return b, env, nil
}

// classifyVendorMessage maps a vendor failure message into the taxonomy.
func classifyVendorMessage(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication"):
		return serrors.With(serrors.ErrAuthenticationFailure, "%s", msg)
	case strings.Contains(lower, "not exist") || strings.Contains(lower, "unknown domain"):
		return serrors.With(serrors.ErrDomainNotFound, "%s", msg)
	case strings.Contains(lower, "syntax") || strings.Contains(lower, "invalid parameter"):
		return serrors.With(serrors.ErrInvalidData, "%s", msg)
	default:
		return serrors.With(serrors.ErrOperationFailed, "%s", msg)
	}
}

func (c *Client) respond(raw []byte, env envelope, r *registrar.Response) *registrar.Response {
	r.Raw = raw
	r.Registrar = c.opts.Name
	r.Timestamp = time.Now().UTC()
	if r.Message == "" {
		r.Message = env.Message
	}
	if r.OrderID == "" {
		r.OrderID = env.TransactID
	}

	return r
}

// CheckAvailability asks the vendor whether the domain can be registered.
func (c *Client) CheckAvailability(ctx context.Context, name string) (bool, error) {
	b, _, err := c.call(ctx, "/Domain/Check", url.Values{"Domain": {name}})
	if err != nil {
		return false, err
	}

	var res struct {
		DomainStatus string `json:"status"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return false, fmt.Errorf("could not decode check response: %w", err)
	}

	return strings.EqualFold(res.DomainStatus, "AVAILABLE"), nil
}

// Register creates the domain; the vendor transaction id identifies the
// order on retry.
func (c *Client) Register(ctx context.Context, params registrar.RegisterParams) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", params.Name)
	v.Set("Period", fmt.Sprintf("%dY", params.Years))
	if len(params.Nameservers) > 0 {
		v.Set("Ns_list", strings.Join(params.Nameservers, ","))
	}
	for _, ct := range params.Contacts {
		if ct.Type == "registrant" {
			v.Set("Registrant_Email", ct.Email)
			v.Set("Registrant_Name", ct.Name)
		}
	}

	b, env, err := c.call(ctx, "/Domain/Create", v)
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// Renew extends the registration period.
func (c *Client) Renew(ctx context.Context, name string, years int) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", name)
	v.Set("Period", fmt.Sprintf("%dY", years))

	b, env, err := c.call(ctx, "/Domain/Renew", v)
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// Transfer initiates a transfer-in.
func (c *Client) Transfer(ctx context.Context, name, authCode string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", name)
	v.Set("transferAuthInfo", authCode)

	b, env, err := c.call(ctx, "/Domain/Transfer/Initiate", v)
	if err != nil {
		return nil, err
	}

	res := &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}
	if res.Success {
		res.Transfer = &registrar.TransferDetail{
			Status:       domain.DomainStatusPendingTransfer,
			VendorStatus: env.Status,
		}
	}

	return c.respond(b, env, res), nil
}

// TransferStatus reports and maps the in-flight transfer state.
func (c *Client) TransferStatus(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/Transfer/History", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	var res struct {
		TransferStatus string `json:"transferstatus"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode transfer history response: %w", err)
	}

	mapped, _ := registrar.MapTransferStatus(transferStatuses, strings.ToLower(res.TransferStatus))

	return c.respond(b, env, &registrar.Response{
		Success: true,
		Transfer: &registrar.TransferDetail{
			Status:       mapped,
			VendorStatus: res.TransferStatus,
		},
	}), nil
}

// CancelTransfer cancels an in-flight transfer.
func (c *Client) CancelTransfer(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/Transfer/Cancel", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// AuthCode fetches the transfer secret.
func (c *Client) AuthCode(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/Info", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	var res struct {
		AuthInfo string `json:"transferauthinfo"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode info response: %w", err)
	}

	return c.respond(b, env, &registrar.Response{Success: res.AuthInfo != "", AuthCode: res.AuthInfo}), nil
}

// UpdateNameservers replaces the delegation set.
func (c *Client) UpdateNameservers(ctx context.Context, name string, nameservers []string) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", name)
	v.Set("Ns_list", strings.Join(nameservers, ","))

	b, env, err := c.call(ctx, "/Domain/Update", v)
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// Contacts fetches the contacts attached to the domain.
func (c *Client) Contacts(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/Info", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	var res struct {
		Registrant struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"registrant"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode info response: %w", err)
	}

	var contacts []domain.Contact
	if res.Registrant.Email != "" {
		contacts = append(contacts, domain.Contact{
			Type:  "registrant",
			Name:  res.Registrant.Name,
			Email: res.Registrant.Email,
		})
	}

	return c.respond(b, env, &registrar.Response{Success: true, Contacts: contacts}), nil
}

// UpdateContacts replaces the contacts attached to the domain.
func (c *Client) UpdateContacts(ctx context.Context, name string, contacts []domain.Contact) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", name)
	for _, ct := range contacts {
		if ct.Type == "registrant" {
			v.Set("Registrant_Name", ct.Name)
			v.Set("Registrant_Email", ct.Email)
		}
	}

	b, env, err := c.call(ctx, "/Domain/Update", v)
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// DNSRecords fetches the records managed at the registrar.
func (c *Client) DNSRecords(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/DnsRecord/List", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	var res struct {
		Records []struct {
			Type  string      `json:"type"`
			Name  string      `json:"name"`
			Value string      `json:"value"`
			TTL   json.Number `json:"ttl"`
		} `json:"records"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode dns list response: %w", err)
	}

	out := make([]domain.DNSRecord, 0, len(res.Records))
	for _, vr := range res.Records {
		ttl, _ := vr.TTL.Int64()
		out = append(out, domain.DNSRecord{
			Type:  strings.ToUpper(vr.Type),
			Host:  vr.Name,
			Value: vr.Value,
			TTL:   int(ttl),
		})
	}

	return c.respond(b, env, &registrar.Response{Success: true, Records: out}), nil
}

// UpdateDNSRecords replaces the records managed at the registrar. The vendor
// has no bulk replace, so the adapter issues a full set via FullList update.
func (c *Client) UpdateDNSRecords(ctx context.Context, name string, records []domain.DNSRecord) (*registrar.Response, error) {
	v := url.Values{}
	v.Set("Domain", name)
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%d", r.Type, r.Host, r.Value, r.TTL))
	}
	v.Set("FullRecordList", strings.Join(parts, ";"))

	b, env, err := c.call(ctx, "/Domain/DnsRecord/Update", v)
	if err != nil {
		return nil, err
	}

	return c.respond(b, env, &registrar.Response{Success: strings.EqualFold(env.Status, "SUCCESS")}), nil
}

// Info fetches the registrar-reported state of the domain.
func (c *Client) Info(ctx context.Context, name string) (*registrar.Response, error) {
	b, env, err := c.call(ctx, "/Domain/Info", url.Values{"Domain": {name}})
	if err != nil {
		return nil, err
	}

	var res struct {
		DomainStatus   string `json:"domainstatus"`
		CreationDate   string `json:"registrationdate"`
		ExpirationDate string `json:"expirationdate"`
		NsList         string `json:"ns_list"`
		RegistrarLock  string `json:"registrarlock"`
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode info response: %w", err)
	}

	var ns []string
	for _, h := range strings.Split(res.NsList, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			ns = append(ns, h)
		}
	}
	createdAt, _ := time.Parse(timeLayout, res.CreationDate)
	expiresAt, _ := time.Parse(timeLayout, res.ExpirationDate)

	return c.respond(b, env, &registrar.Response{
		Success: true,
		Info: &registrar.DomainInfo{
			Status:      strings.ToLower(res.DomainStatus),
			CreatedAt:   createdAt,
			ExpiresAt:   expiresAt,
			Nameservers: ns,
			Locked:      strings.EqualFold(res.RegistrarLock, "ENABLED"),
		},
	}), nil
}

// SetLock toggles the vendor registrar lock.
func (c *Client) SetLock(ctx context.Context, name string, locked bool) (bool, error) {
	path := "/Domain/RegistrarLock/Enable"
	if !locked {
		path = "/Domain/RegistrarLock/Disable"
	}

	_, _, err := c.call(ctx, path, url.Values{"Domain": {name}})
	if err != nil {
		return !locked, err
	}

	return locked, nil
}

// TestConnection verifies credentials with the account balance call.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	_, _, err := c.call(ctx, "/Account/Balance/Get", url.Values{})
	if err != nil {
		return false, err
	}

	return true, nil
}

// Ensure Client conforms to the contract at compile time.
var _ registrar.Client = (*Client)(nil)
