package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/accountd/authserver/types"
)

// ResetGenerator mints and checks password-reset tokens of the form
// base36(issue-ts)-hex(hmac). The MAC covers the user id and the current
// password hash, so changing the password invalidates every outstanding
// token for that user; a successfully used token therefore cannot be reused.
// No reset state is persisted server-side.
type ResetGenerator struct {
	secret []byte
	maxAge time.Duration

	now func() time.Time
}

func NewResetGenerator(secret string, maxAge time.Duration) *ResetGenerator {
	return &ResetGenerator{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Make returns a reset token bound to the user's current password state.
func (g *ResetGenerator) Make(user types.User) string {
	ts := g.now().Unix()
	return strconv.FormatInt(ts, 36) + "-" + g.signature(user, ts)
}

// Check reports whether token was minted by Make for this user's current
// password state and is still within the max age.
func (g *ResetGenerator) Check(user types.User, token string) bool {
	stamp, signature, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}

	ts, err := strconv.ParseInt(stamp, 36, 64)
	if err != nil {
		return false
	}

	if !hmac.Equal([]byte(signature), []byte(g.signature(user, ts))) {
		return false
	}

	age := g.now().Unix() - ts
	if age < 0 || age > int64(g.maxAge.Seconds()) {
		return false
	}
	return true
}

func (g *ResetGenerator) signature(user types.User, ts int64) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%d|%s|%d", user.ID, user.PasswordHash, ts)
	return hex.EncodeToString(mac.Sum(nil))
}
