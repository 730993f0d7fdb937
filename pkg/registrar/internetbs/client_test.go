package internetbs_test

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
	"reseller/pkg/registrar/internetbs"
	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(fn rtFunc) *internetbs.Client {
	return internetbs.New(&http.Client{Transport: fn}, internetbs.Options{
		Name:     "ibs",
		APIKey:   "key-1",
		Password: "pass-1",
	})
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func readForm(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	form, err := url.ParseQuery(string(b))
	require.NoError(t, err)

	return form
}

func TestClient_CheckAvailability(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "api.internet.bs", r.URL.Host)
		require.Equal(t, "/Domain/Check", r.URL.Path)

		form := readForm(t, r)
		require.Equal(t, "key-1", form.Get("ApiKey"))
		require.Equal(t, "pass-1", form.Get("Password"))
		require.Equal(t, "JSON", form.Get("ResponseFormat"))
		require.Equal(t, "example.com", form.Get("Domain"))

		return jsonResponse(http.StatusOK,
			`{"transactid":"t-1","status":"AVAILABLE","domain":"example.com"}`), nil
	})

	available, err := c.CheckAvailability(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, available)
}

func TestClient_Register(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/Domain/Create", r.URL.Path)

		form := readForm(t, r)
		require.Equal(t, "example.com", form.Get("Domain"))
		require.Equal(t, "2Y", form.Get("Period"))
		require.Equal(t, "ns1.example.com,ns2.example.com", form.Get("Ns_list"))
		require.Equal(t, "jane@example.com", form.Get("Registrant_Email"))

		return jsonResponse(http.StatusOK,
			`{"transactid":"t-42","status":"SUCCESS","product":[{"domain":"example.com"}]}`), nil
	})

	res, err := c.Register(context.Background(), registrar.RegisterParams{
		Name:        "example.com",
		Years:       2,
		Nameservers: []string{"ns1.example.com", "ns2.example.com"},
		Contacts:    []domain.Contact{{Type: "registrant", Name: "Jane Doe", Email: "jane@example.com"}},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "t-42", res.OrderID)
	require.Equal(t, "ibs", res.Registrar)
}

func TestClient_failureEnvelopeClassification(t *testing.T) {
	cases := []struct {
		message string
		kind    error
	}{
		{"Invalid API key or password", serrors.ErrAuthenticationFailure},
		{"The domain does not exist in your account", serrors.ErrDomainNotFound},
		{"Invalid parameter: Period", serrors.ErrInvalidData},
		{"Operation could not be completed", serrors.ErrOperationFailed},
	}
	for _, tc := range cases {
		c := newTestClient(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK,
				`{"transactid":"t-9","status":"FAILURE","message":"`+tc.message+`"}`), nil
		})

		_, err := c.Renew(context.Background(), "example.com", 1)
		require.ErrorIs(t, err, tc.kind, "message %q", tc.message)
	}
}

func TestClient_rateLimited429(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		resp := jsonResponse(http.StatusTooManyRequests, `too many requests`)
		resp.Header.Set("Retry-After", "12")

		return resp, nil
	})

	_, err := c.Renew(context.Background(), "example.com", 1)
	require.ErrorIs(t, err, serrors.ErrRateLimited)
	require.Equal(t, 12*time.Second, serrors.RetryAfter(err))
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

func TestClient_Transfer(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/Domain/Transfer/Initiate", r.URL.Path)

		form := readForm(t, r)
		require.Equal(t, "example.com", form.Get("Domain"))
		require.Equal(t, "xfer-secret", form.Get("transferAuthInfo"))

		return jsonResponse(http.StatusOK, `{"transactid":"t-77","status":"SUCCESS"}`), nil
	})

	res, err := c.Transfer(context.Background(), "example.com", "xfer-secret")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "t-77", res.OrderID)
	require.Equal(t, domain.DomainStatusPendingTransfer, res.Transfer.Status)
}

func TestClient_TransferStatus_mapping(t *testing.T) {
	cases := []struct {
		vendor string
		mapped domain.DomainStatus
	}{
		{"Pending Initiation", domain.DomainStatusPendingTransfer},
		{"In Progress", domain.DomainStatusTransferInProgress},
		{"Approved", domain.DomainStatusTransferApproved},
		{"Completed", domain.DomainStatusTransferCompleted},
		{"Registry Rejected", domain.DomainStatusTransferFailed},
		{"Cancelled by client", domain.DomainStatusTransferCancelled},
		// unknown statuses must map to empty so callers leave state alone
		{"Escrow Review", ""},
	}
	for _, tc := range cases {
		c := newTestClient(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/Domain/Transfer/History", r.URL.Path)

			return jsonResponse(http.StatusOK,
				`{"transactid":"t-5","status":"SUCCESS","transferstatus":"`+tc.vendor+`"}`), nil
		})

		res, err := c.TransferStatus(context.Background(), "example.com")
		require.NoError(t, err)
		require.Equal(t, tc.mapped, res.Transfer.Status, "vendor %q", tc.vendor)
		require.Equal(t, tc.vendor, res.Transfer.VendorStatus)
	}
}

func TestClient_Info(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/Domain/Info", r.URL.Path)

		return jsonResponse(http.StatusOK, `{
			"transactid": "t-3",
			"status": "SUCCESS",
			"domainstatus": "REGISTERED",
			"registrationdate": "2024/01/15",
			"expirationdate": "2026/01/15",
			"ns_list": "NS1.Example.com, ns2.example.com",
			"registrarlock": "ENABLED"
		}`), nil
	})

	res, err := c.Info(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, "registered", res.Info.Status)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), res.Info.CreatedAt)
	require.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), res.Info.ExpiresAt)
	require.Equal(t, []string{"ns1.example.com", "ns2.example.com"}, res.Info.Nameservers)
	require.True(t, res.Info.Locked)
}

func TestClient_AuthCode(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/Domain/Info", r.URL.Path)

		return jsonResponse(http.StatusOK,
			`{"transactid":"t-4","status":"SUCCESS","transferauthinfo":"epp-code-1"}`), nil
	})

	res, err := c.AuthCode(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "epp-code-1", res.AuthCode)
}

func TestClient_UpdateDNSRecords(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/Domain/DnsRecord/Update", r.URL.Path)

		form := readForm(t, r)
		require.Equal(t,
			"A|www|203.0.113.7|3600;MX|@|mail.example.com|3600",
			form.Get("FullRecordList"))

		return jsonResponse(http.StatusOK, `{"transactid":"t-6","status":"SUCCESS"}`), nil
	})

	res, err := c.UpdateDNSRecords(context.Background(), "example.com", []domain.DNSRecord{
		{Type: "A", Host: "www", Value: "203.0.113.7", TTL: 3600},
		{Type: "MX", Host: "@", Value: "mail.example.com", TTL: 3600},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
}
