package token

import (
	"testing"
	"time"

	"github.com/accountd/authserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() types.User {
	return types.User{ID: 12, Email: "a@x.com", PasswordHash: "$2a$10$hash-of-current-password"}
}

func TestResetTokenRoundTrip(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	user := testUser()

	tok := gen.Make(user)
	require.NotEmpty(t, tok)
	assert.True(t, gen.Check(user, tok))
}

func TestResetTokenInvalidatedByPasswordChange(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	user := testUser()

	tok := gen.Make(user)
	require.True(t, gen.Check(user, tok))

	user.PasswordHash = "$2a$10$hash-of-new-password"
	assert.False(t, gen.Check(user, tok), "token must die with the password it was bound to")
}

func TestResetTokenBoundToUser(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	user := testUser()

	tok := gen.Make(user)

	other := user
	other.ID = 13
	assert.False(t, gen.Check(other, tok))
}

func TestResetTokenExpires(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	user := testUser()

	issued := time.Now()
	gen.now = func() time.Time { return issued }
	tok := gen.Make(user)

	gen.now = func() time.Time { return issued.Add(59 * time.Minute) }
	assert.True(t, gen.Check(user, tok))

	gen.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.False(t, gen.Check(user, tok))
}

func TestResetTokenRejectsMalformed(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	user := testUser()

	for _, tok := range []string{"", "nodash", "-", "zz-deadbeef", "0-"} {
		assert.False(t, gen.Check(user, tok), "token %q", tok)
	}
}

func TestResetTokenWrongSecret(t *testing.T) {
	gen := NewResetGenerator("test-secret", time.Hour)
	other := NewResetGenerator("other-secret", time.Hour)
	user := testUser()

	tok := gen.Make(user)
	assert.False(t, other.Check(user, tok))
}
