// Package telegram validates mini-app init payloads and talks to the Bot API.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"habitTrackerAPI/internal/user"
)

var (
	ErrEmptyInitData = errors.New("init data is empty")
	ErrMissingHash   = errors.New("init data has no hash")
	ErrInvalidHash   = errors.New("init data hash mismatch")
	ErrExpired       = errors.New("init data is expired")
	ErrMissingUser   = errors.New("init data has no valid user")
)

// Validate checks the HMAC signature of a raw initData query string against
// botToken and returns the signed user. A zero maxAge disables the auth_date check.
func Validate(initData, botToken string, maxAge time.Duration, now time.Time) (*user.Identity, error) {
	if initData == "" {
		return nil, ErrEmptyInitData
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	expected := signature(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return nil, ErrInvalidHash
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrExpired
		}
	}

	return parseUser(values.Get("user"))
}

// Sign returns values encoded as an initData string with a valid hash for
// botToken. The mini-app platform does this in production.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = v
		}
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}

// DataCheckString joins every key=value pair except hash, sorted by key, with newlines.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func signature(values url.Values, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(DataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseUser(raw string) (*user.Identity, error) {
	if raw == "" || !gjson.Valid(raw) {
		return nil, ErrMissingUser
	}

	u := gjson.Parse(raw)
	id := u.Get("id")
	if !id.Exists() || id.Int() == 0 {
		return nil, ErrMissingUser
	}

	return &user.Identity{
		ID:        id.Int(),
		FirstName: u.Get("first_name").String(),
		LastName:  u.Get("last_name").String(),
		Username:  u.Get("username").String(),
	}, nil
}
