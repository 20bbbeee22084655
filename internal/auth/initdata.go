package auth

import (
	"errors"
	"log"
	"net/url"
	"strconv"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// Errors returned by InitDataValidator.
var (
	ErrInitDataMalformed = errors.New("init data is malformed")
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data expired")
)

// Customer is the Telegram user embedded in mini-app init data.
type Customer struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// InitDataValidator verifies the query string a Telegram mini-app receives as
// initData, signed with the bot token.
type InitDataValidator struct {
	botToken string
	maxAge   time.Duration
}

// NewInitDataValidator creates a validator. A zero maxAge disables the
// auth_date freshness check.
func NewInitDataValidator(botToken string, maxAge time.Duration) *InitDataValidator {
	return &InitDataValidator{botToken: botToken, maxAge: maxAge}
}

// Validate checks the signature and freshness of initData and returns the
// customer it identifies. A missing or unparsable user field yields an empty
// Customer rather than an error.
func (v *InitDataValidator) Validate(raw string) (*Customer, error) {
	if v.botToken == "" || raw == "" {
		return nil, ErrInitDataSignature
	}

	if err := initdata.Validate(raw, v.botToken, v.maxAge); err != nil {
		switch {
		case errors.Is(err, initdata.ErrSignInvalid):
			return nil, ErrInitDataSignature
		case errors.Is(err, initdata.ErrExpired):
			return nil, ErrInitDataExpired
		default:
			return nil, ErrInitDataMalformed
		}
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		log.Printf("WARN: could not parse user from init data: %v", err)
		return &Customer{}, nil
	}
	u := data.User
	return &Customer{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}, nil
}

// SignInitData sets auth_date and hash on values so that they validate
// against botToken, and returns the encoded query string.
func SignInitData(botToken string, values url.Values, authDate time.Time) string {
	values.Del("hash")
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))

	payload := make(map[string]string, len(values))
	for k := range values {
		payload[k] = values.Get(k)
	}
	values.Set("hash", initdata.Sign(payload, botToken, authDate))
	return values.Encode()
}
