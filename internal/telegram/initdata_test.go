package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:TEST-token"

var testNow = time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

func signedPayload(t *testing.T, authDate time.Time) string {
	t.Helper()
	v := url.Values{}
	v.Set("query_id", "AAH")
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("user", `{"id":42,"first_name":"Anna","last_name":"Ivanova","username":"anna"}`)
	return Sign(v, testToken)
}

func TestValidate_Success(t *testing.T) {
	id, err := Validate(signedPayload(t, testNow.Add(-time.Minute)), testToken, time.Hour, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(42), id.ID)
	assert.Equal(t, "Anna", id.FirstName)
	assert.Equal(t, "Ivanova", id.LastName)
	assert.Equal(t, "anna", id.Username)
}

func TestValidate_MatchesReferenceComputation(t *testing.T) {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", `{"id":7}`)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte("auth_date=1700000000\nuser={\"id\":7}"))
	want := hex.EncodeToString(mac.Sum(nil))

	v.Set("hash", want)
	id, err := Validate(v.Encode(), testToken, 0, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.ID)
}

func TestValidate_Failures(t *testing.T) {
	valid := signedPayload(t, testNow)

	tampered, err := url.ParseQuery(valid)
	require.NoError(t, err)
	tampered.Set("user", `{"id":1,"first_name":"Mallory"}`)

	noHash, err := url.ParseQuery(valid)
	require.NoError(t, err)
	noHash.Del("hash")

	noUser := url.Values{}
	noUser.Set("auth_date", strconv.FormatInt(testNow.Unix(), 10))

	tests := []struct {
		name     string
		initData string
		token    string
		maxAge   time.Duration
		want     error
	}{
		{"empty", "", testToken, 0, ErrEmptyInitData},
		{"missing hash", noHash.Encode(), testToken, 0, ErrMissingHash},
		{"tampered", tampered.Encode(), testToken, 0, ErrInvalidHash},
		{"wrong token", valid, "other:token", 0, ErrInvalidHash},
		{"expired", signedPayload(t, testNow.Add(-2*time.Hour)), testToken, time.Hour, ErrExpired},
		{"no user", Sign(noUser, testToken), testToken, 0, ErrMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.initData, tt.token, tt.maxAge, testNow)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_MaxAgeDisabled(t *testing.T) {
	old := signedPayload(t, testNow.Add(-30*24*time.Hour))
	_, err := Validate(old, testToken, 0, testNow)
	assert.NoError(t, err)
}

func TestDataCheckString(t *testing.T) {
	v := url.Values{}
	v.Set("user", "u")
	v.Set("auth_date", "1")
	v.Set("hash", "ignored")
	v.Set("query_id", "q")

	assert.Equal(t, "auth_date=1\nquery_id=q\nuser=u", DataCheckString(v))
}
