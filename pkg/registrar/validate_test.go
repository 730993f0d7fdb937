package registrar

import (
	"strings"
	"testing"

	"reseller/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDomainName(t *testing.T) {
	t.Parallel()

	name, err := NormalizeDomainName("  Example.COM. ")
	require.NoError(t, err)
	require.Equal(t, "example.com", name)

	name, err = NormalizeDomainName("sub.domain.example.co.uk")
	require.NoError(t, err)
	require.Equal(t, "sub.domain.example.co.uk", name)

	for _, bad := range []string{
		"",
		"   ",
		"nodots",
		"-leading.com",
		"trailing-.com",
		"spaces in.com",
		"example.c",
		"example." + strings.Repeat("a", 64) + ".com",
		strings.Repeat("a", 250) + ".com",
	} {
		_, err := NormalizeDomainName(bad)
		require.ErrorIs(t, err, serrors.ErrInvalidData, "name %q", bad)
	}
}

func TestValidateYears(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateYears(1))
	require.NoError(t, ValidateYears(10))
	require.ErrorIs(t, ValidateYears(0), serrors.ErrInvalidData)
	require.ErrorIs(t, ValidateYears(11), serrors.ErrInvalidData)
	require.ErrorIs(t, ValidateYears(-3), serrors.ErrInvalidData)
}

func TestNormalizeNameservers(t *testing.T) {
	t.Parallel()

	ns, err := NormalizeNameservers([]string{" NS1.Example.com ", "ns2.example.com", "ns1.example.com", ""}, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"ns1.example.com", "ns2.example.com"}, ns)

	// one survives dedupe, below the minimum
	_, err = NormalizeNameservers([]string{"ns1.example.com", "NS1.EXAMPLE.COM"}, 0)
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	_, err = NormalizeNameservers([]string{"ns1.example.com", "not a hostname"}, 0)
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	// default bound is four
	_, err = NormalizeNameservers([]string{
		"ns1.example.com", "ns2.example.com", "ns3.example.com",
		"ns4.example.com", "ns5.example.com",
	}, 0)
	require.ErrorIs(t, err, serrors.ErrInvalidData)

	// vendor override lifts the bound
	ns, err = NormalizeNameservers([]string{
		"ns1.example.com", "ns2.example.com", "ns3.example.com",
		"ns4.example.com", "ns5.example.com",
	}, 6)
	require.NoError(t, err)
	require.Len(t, ns, 5)

	// override is capped at the absolute maximum
	many := make([]string, 0, AbsoluteMaxNameservers+1)
	for i := 0; i < AbsoluteMaxNameservers+1; i++ {
		many = append(many, "ns"+strings.Repeat("x", i+1)+".example.com")
	}
	_, err = NormalizeNameservers(many, 100)
	require.ErrorIs(t, err, serrors.ErrInvalidData)
}

func TestValidateAuthCode(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateAuthCode("s3cret-code"))
	require.ErrorIs(t, ValidateAuthCode(""), serrors.ErrInvalidData)
	require.ErrorIs(t, ValidateAuthCode("abc"), serrors.ErrInvalidData)
	require.ErrorIs(t, ValidateAuthCode("   abc   "), serrors.ErrInvalidData)
}
