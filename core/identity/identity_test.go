package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantScope string
		wantLocal string
		wantErr   bool
	}{
		{name: "simple", token: "agency_S1", wantScope: "agency", wantLocal: "S1"},
		{name: "local contains separator", token: "metro_T1_express", wantScope: "metro", wantLocal: "T1_express"},
		{name: "no separator", token: "S1", wantErr: true},
		{name: "empty scope", token: "_S1", wantErr: true},
		{name: "empty local", token: "agency_", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedIdentifier))
				var malformed *MalformedError
				assert.True(t, errors.As(err, &malformed))
				assert.Equal(t, tt.token, malformed.Token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, id.Scope())
			assert.Equal(t, tt.wantLocal, id.Local())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, token := range []string{"agency_S1", "a_b_c", "x_1", "metro_T1-2"} {
		id, err := Parse(token)
		require.NoError(t, err)
		assert.Equal(t, token, Format(id))

		again, err := Parse(Format(id))
		require.NoError(t, err)
		assert.Equal(t, id, again)
	}

	for _, parts := range [][2]string{{"agency", "S1"}, {"m", "a_b"}, {"scope", "-"}} {
		id := MustNew(parts[0], parts[1])
		parsed, err := Parse(Format(id))
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestNewRejectsInvalidParts(t *testing.T) {
	_, err := New("", "S1")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = New("agency", "")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = New("my_agency", "S1")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

func TestRescope(t *testing.T) {
	id := MustNew("agency", "S1")
	moved, err := Rescope(id, "metro")
	require.NoError(t, err)

	assert.Equal(t, "metro", moved.Scope())
	assert.Equal(t, "S1", moved.Local())
	assert.Equal(t, "agency", id.Scope(), "original must be untouched")

	for _, scope := range []string{"", "a_b"} {
		_, err := Rescope(id, scope)
		assert.ErrorIs(t, err, ErrMalformedIdentifier, "scope %q", scope)
	}
}

func TestWithLocal(t *testing.T) {
	id := MustNew("agency", "S1")

	renamed, err := WithLocal(id, "S1_b")
	require.NoError(t, err)
	parsed, err := Parse(Format(renamed))
	require.NoError(t, err)
	assert.Equal(t, renamed, parsed)

	_, err = WithLocal(id, "")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = WithLocal(ID{}, "S1")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

func TestCompare(t *testing.T) {
	a := MustNew("a", "2")
	b := MustNew("a", "10")
	c := MustNew("b", "1")

	assert.Equal(t, 0, Compare(a, a))
	assert.Positive(t, Compare(a, b), "local parts compare as strings")
	assert.Negative(t, Compare(a, c))
	assert.Positive(t, Compare(c, b))
}

func TestZero(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.Equal(t, "", id.String())
	assert.False(t, MustNew("a", "b").IsZero())
}
