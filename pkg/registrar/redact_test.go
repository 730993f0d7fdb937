package registrar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSensitiveKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{
		"password", "Password", "api-userPassword",
		"apikey", "api_key", "X-Api-Key",
		"authCode", "auth_code", "transferAuthCode",
		"clientSecret", "accessToken", "credentials",
	} {
		require.True(t, SensitiveKey(key), "key %q", key)
	}

	for _, key := range []string{"domain", "years", "nameservers", "userId"} {
		require.False(t, SensitiveKey(key), "key %q", key)
	}
}

func TestRedact(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"domain":   "example.com",
		"authCode": "super-secret",
		"nested": map[string]any{
			"apiKey": "k",
			"years":  2,
		},
		"creds": map[string]string{
			"password": "p",
			"username": "u",
		},
		"list": []any{
			map[string]any{"token": "t", "ok": true},
		},
	}

	out := Redact(in)

	require.Equal(t, "example.com", out["domain"])
	require.Equal(t, RedactedValue, out["authCode"])
	require.Equal(t, RedactedValue, out["nested"].(map[string]any)["apiKey"])
	require.Equal(t, 2, out["nested"].(map[string]any)["years"])
	require.Equal(t, RedactedValue, out["creds"].(map[string]string)["password"])
	require.Equal(t, "u", out["creds"].(map[string]string)["username"])
	require.Equal(t, RedactedValue, out["list"].([]any)[0].(map[string]any)["token"])

	// the input is left untouched
	require.Equal(t, "super-secret", in["authCode"])
	require.Equal(t, "k", in["nested"].(map[string]any)["apiKey"])

	require.Nil(t, Redact(nil))
}
