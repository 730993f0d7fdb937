package logicboxes_test

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/registrar/logicboxes"
	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(fn rtFunc) *logicboxes.Client {
	return logicboxes.New(&http.Client{Transport: fn}, logicboxes.Options{
		Name:   "lbox",
		UserID: "user-1",
		APIKey: "key-1",
	})
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_CheckAvailability(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "httpapi.com", r.URL.Host)
		require.Equal(t, "/api/domains/available.json", r.URL.Path)

		q := r.URL.Query()
		require.Equal(t, "user-1", q.Get("auth-userid"))
		require.Equal(t, "key-1", q.Get("api-key"))
		require.Equal(t, "example", q.Get("domain-name"))
		require.Equal(t, "com", q.Get("tlds"))

		return jsonResponse(http.StatusOK,
			`{"example.com":{"status":"available","classkey":"domcno"}}`), nil
	})

	available, err := c.CheckAvailability(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, available)
}

func TestClient_Register_success(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/domains/register.json", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(b))
		require.NoError(t, err)
		require.Equal(t, "user-1", form.Get("auth-userid"))
		require.Equal(t, "example.com", form.Get("domain-name"))
		require.Equal(t, "2", form.Get("years"))
		require.Equal(t, []string{"ns1.example.com", "ns2.example.com"}, form["ns"])
		require.Equal(t, "jane@example.com", form.Get("registrant-email"))

		return jsonResponse(http.StatusOK,
			`{"entityid":81234567,"actionstatus":"Success","actionstatusdesc":"Registration completed"}`), nil
	})

	res, err := c.Register(context.Background(), registrarParams())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "81234567", res.OrderID)
	require.Equal(t, "lbox", res.Registrar)
	require.NotEmpty(t, res.Raw)
}

func registrarParams() registrar.RegisterParams {
	return registrar.RegisterParams{
		Name:        "example.com",
		Years:       2,
		Nameservers: []string{"ns1.example.com", "ns2.example.com"},
		Contacts:    []domain.Contact{{Type: "registrant", Name: "Jane Doe", Email: "jane@example.com"}},
	}
}

func TestClient_Register_vendorFailure(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"entityid":81234568,"actionstatus":"Failed","actionstatusdesc":"Domain already registered"}`), nil
	})

	res, err := c.Register(context.Background(), registrarParams())
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Errors, "Domain already registered")
}

func TestClient_rateLimited429(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		resp := jsonResponse(http.StatusTooManyRequests, `slow down`)
		resp.Header.Set("Retry-After", "7")

		return resp, nil
	})

	_, err := c.Renew(context.Background(), "example.com", 1)
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Equal(t, 7*time.Second, serrors.RetryAfter(err))
}

func TestClient_errorEnvelopeClassification(t *testing.T) {
	cases := []struct {
		message string
		kind    error
	}{
		{"Website doesn't exist for example.com", serrors.ErrDomainNotFound},
		{"domain not found", serrors.ErrDomainNotFound},
		{"Invalid credentials supplied", serrors.ErrAuthenticationFailure},
		{"Rate limit exceeded for this reseller", serrors.ErrRateLimited},
		{"Invalid value for years", serrors.ErrInvalidData},
		{"Order locked for processing", serrors.ErrOperationFailed},
	}
	for _, tc := range cases {
		c := newTestClient(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK,
				`{"status":"ERROR","message":"`+tc.message+`"}`), nil
		})

		_, err := c.Renew(context.Background(), "example.com", 1)
		require.ErrorIs(t, err, tc.kind, "message %q", tc.message)
	}
}

func TestClient_authenticationFailure(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `denied`), nil
	})

	_, err := c.Renew(context.Background(), "example.com", 1)
	require.ErrorIs(t, err, serrors.ErrAuthenticationFailure)
}

func TestClient_transportFailures(t *testing.T) {
	timedOut := newTestClient(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	})
	_, err := timedOut.Renew(context.Background(), "example.com", 1)
	require.ErrorIs(t, err, serrors.ErrTimeout)

	down := newTestClient(func(r *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	_, err = down.Renew(context.Background(), "example.com", 1)
	require.ErrorIs(t, err, serrors.ErrConnectionFailure)
}

func TestClient_TransferStatus_mapping(t *testing.T) {
	cases := []struct {
		vendor string
		mapped domain.DomainStatus
	}{
		{"InProgress", domain.DomainStatusTransferInProgress},
		{"Approved", domain.DomainStatusTransferApproved},
		{"Success", domain.DomainStatusTransferCompleted},
		{"Rejected", domain.DomainStatusTransferFailed},
		{"CancelledByCustomer", domain.DomainStatusTransferCancelled},
		// unknown statuses must map to empty so callers leave state alone
		{"SomethingNew", ""},
	}
	for _, tc := range cases {
		c := newTestClient(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/api/domains/transfer-status.json", r.URL.Path)

			return jsonResponse(http.StatusOK,
				`{"transferstatus":"`+tc.vendor+`","estimatedcompletion":"1767225600"}`), nil
		})

		res, err := c.TransferStatus(context.Background(), "example.com")
		require.NoError(t, err)
		require.Equal(t, tc.mapped, res.Transfer.Status, "vendor %q", tc.vendor)
		require.Equal(t, tc.vendor, res.Transfer.VendorStatus)
		require.Equal(t, time.Unix(1767225600, 0).UTC(), res.Transfer.ETA)
	}
}

func TestClient_Info(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/api/domains/details-by-name.json", r.URL.Path)

		return jsonResponse(http.StatusOK, `{
			"currentstatus": "Active",
			"creationtime": "1704067200",
			"endtime": "1767225600",
			"ns1": "NS1.Example.com",
			"ns2": "ns2.example.com",
			"orderstatus": ["transferlock"]
		}`), nil
	})

	res, err := c.Info(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, "active", res.Info.Status)
	require.Equal(t, time.Unix(1704067200, 0).UTC(), res.Info.CreatedAt)
	require.Equal(t, time.Unix(1767225600, 0).UTC(), res.Info.ExpiresAt)
	require.Equal(t, []string{"ns1.example.com", "ns2.example.com"}, res.Info.Nameservers)
	require.True(t, res.Info.Locked)
}

func TestClient_AuthCode(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/api/domains/auth-code.json", r.URL.Path)

		return jsonResponse(http.StatusOK, `{"authcode":"xfer-secret-9"}`), nil
	})

	res, err := c.AuthCode(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "xfer-secret-9", res.AuthCode)
}

func TestClient_TLDPrices(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/api/products/reseller-price.json", r.URL.Path)

		return jsonResponse(http.StatusOK, `{
			"domcno": {"tld": "com", "addnewdomain": {"1": "10.50"}, "renewdomain": {"1": "11.00"}},
			"junk": {"addnewdomain": {"1": "1.00"}}
		}`), nil
	})

	res, err := c.TLDPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Prices, 2)
	for _, p := range res.Prices {
		require.Equal(t, "com", p.TLD)
		require.Equal(t, "lbox", p.Registrar)
		switch p.Action {
		case domain.ActionRegister:
			require.Equal(t, "10.5", p.Price.String())
		case domain.ActionRenew:
			require.Equal(t, "11", p.Price.String())
		default:
			t.Fatalf("unexpected action %s", p.Action)
		}
	}
}
