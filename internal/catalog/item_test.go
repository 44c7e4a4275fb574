package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Kind
	}{
		{"Ursula K. Le Guin", KindAuthor},
		{"9780143127741", KindISBN},
		{"978-0-14-312774-1", KindISBN},
		{"0586089969", KindISBN},
		{"0-586-08996-9", KindISBN},
		{"043942089X", KindISBN},
		{"0-439-42089-x", KindISBN},
		{"12345", KindAuthor},
		{"brandon sanderson", KindAuthor},
		{"9780143127741extra", KindAuthor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectKind(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNewNormalizesAuthors(t *testing.T) {
	t.Parallel()

	a := New("  Terry   PRATCHETT ", TierHot)
	assert.Equal(t, "terry pratchett", a.Identity)
	assert.Equal(t, KindAuthor, a.Kind)
	assert.Equal(t, TierHot, a.Tier)

	// Two spellings of the same name collapse to one identity.
	b := New("terry pratchett", TierHot)
	assert.Equal(t, a.Identity, b.Identity)
}

func TestNewNormalizesISBNs(t *testing.T) {
	t.Parallel()

	a := New("978-0-14-312774-1", TierWarm)
	assert.Equal(t, "9780143127741", a.Identity)
	assert.Equal(t, KindISBN, a.Kind)

	x := New("0-439-42089-x", "")
	assert.Equal(t, "043942089X", x.Identity)
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"hot", "Warm", " COLD "} {
		_, err := ParseTier(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseTier("lukewarm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")
}

func TestIdentities(t *testing.T) {
	t.Parallel()

	got := Identities([]Item{
		{Identity: "a"}, {Identity: "b"}, {Identity: "c"},
	})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
