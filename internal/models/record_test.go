package models

import (
	"errors"
	"testing"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	r := New("A Study")

	require.NotEmpty(t, r.ID)
	require.Equal(t, "A Study", r.Title)
	require.Equal(t, VisibilityPrivate, r.Visibility)
	require.Equal(t, r.CreatedAt, r.UpdatedAt)
	require.Nil(t, r.NetworkRef)
}

func TestTouch_Monotonic(t *testing.T) {
	r := New("x")
	before := r.UpdatedAt

	r.Touch()
	require.GreaterOrEqual(t, r.UpdatedAt, before)

	// second touch in the same second still advances
	u := r.UpdatedAt
	r.UpdatedAt = u + 100 // simulate a clock that ran ahead
	r.Touch()
	require.Greater(t, r.UpdatedAt, u+99)
}

func TestFingerprint_ContentSensitive(t *testing.T) {
	a := New("Same Title")
	b := New("Same Title")
	b.ID = a.ID // ids differ but do not affect the digest anyway

	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Notes = "secret"
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	b.Notes = ""
	b.Visibility = VisibilityPublic
	require.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_IgnoresNetworkRefAndTimestamps(t *testing.T) {
	r := New("T")
	fp := r.Fingerprint()

	r.NetworkRef = &NetworkRef{EventID: "abc", Kind: 50000, Fingerprint: fp}
	r.UpdatedAt += 10
	require.Equal(t, fp, r.Fingerprint())
}

func TestNormalizeTags(t *testing.T) {
	r := New("T")
	r.Tags = []string{"go", "crypto", "go", "relay", "crypto"}
	r.NormalizeTags()
	require.Equal(t, []string{"go", "crypto", "relay"}, r.Tags)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	r := New("")
	r.Authors = []string{"Jane Doe", " "}
	r.DOI = "not-a-doi"
	r.URL = "ftp://example.org/x"
	r.Visibility = "published"

	err := r.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrValidation))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field
	}
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "authors[1]")
	require.Contains(t, fields, "doi")
	require.Contains(t, fields, "url")
	require.Contains(t, fields, "visibility")
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	r := New("A Study")
	r.Authors = []string{"Jane Doe"}
	r.Year = 2020
	r.DOI = "10.1000/xyz123"
	r.URL = "https://example.org/paper"

	require.NoError(t, r.Validate())
}
