package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxInitDataAge bounds how old auth_date may be.
const MaxInitDataAge = time.Hour

var ErrNoUser = errors.New("init_data has no user")

// User is the "user" field of WebApp init_data.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// UserFrom decodes the user of already parsed init_data values.
func UserFrom(values url.Values) (*User, error) {
	raw := values.Get("user")
	if raw == "" {
		return nil, ErrNoUser
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, ErrNoUser
	}
	return &u, nil
}

// ParseUser decodes the user of unverified init_data. Dev mode only.
func ParseUser(initData string) (*User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	return UserFrom(values)
}

// ValidateInitData verifies the Telegram WebApp init_data signature and
// checks that auth_date is recent.
func ValidateInitData(initData, botToken string, now time.Time) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}
	age := now.Unix() - authDate
	// allow small clock skew
	if age > int64(MaxInitDataAge.Seconds()) || age < -300 {
		return nil, false
	}

	return values, true
}

// Sign computes the init_data hash for values (without the hash field).
func Sign(values url.Values, botToken string) []byte {
	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return h.Sum(nil)
}
