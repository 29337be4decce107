package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	username string
	hash     string
	id       uuid.UUID
	err      error
}

func (f *fakeStore) FindOperator(_ context.Context, username, hash string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	if username == f.username && hash == f.hash {
		return f.id, nil
	}
	return uuid.Nil, ErrInvalidCredentials
}

func basic(userpass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(userpass))
}

func TestHashPassword(t *testing.T) {
	// Known SHA3-256 vector for the empty string.
	assert.Equal(t, "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a", HashPassword(""))
	assert.Len(t, HashPassword("everythinghastostartsomewhere"), 64)
	assert.NotEqual(t, HashPassword("a"), HashPassword("b"))
}

func TestParseBasic(t *testing.T) {
	c, err := ParseBasic(basic("admin:pa:ss"))
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)
	assert.Equal(t, "pa:ss", c.Password)

	c, err = ParseBasic(basic("admin:"))
	require.NoError(t, err)
	assert.Equal(t, "", c.Password)
}

func TestParseBasic_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"bearer":       "Bearer abc",
		"bad base64":   "Basic !!!",
		"no separator": basic("adminpassword"),
		"not utf8":     "Basic " + base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, ':', 'x'}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBasic(header)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	id := uuid.New()
	v := NewValidator(&fakeStore{username: "admin", hash: HashPassword("secret"), id: id})

	got, err := v.Authenticate(context.Background(), basic("admin:secret"))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = v.Authenticate(context.Background(), basic("admin:wrong"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, IsAuthError(err))

	_, err = v.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.True(t, IsAuthError(err))
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	v := NewValidator(&fakeStore{err: errors.New("connection refused")})

	_, err := v.Authenticate(context.Background(), basic("admin:secret"))
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
}

func TestChallenge(t *testing.T) {
	assert.Equal(t, `Basic realm="publish"`, Challenge())
}
