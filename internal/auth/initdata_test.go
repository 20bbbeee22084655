package auth

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

const testBotToken = "123456:TEST-TOKEN"

func signedInitData(t *testing.T, token string, authDate time.Time, user string) string {
	t.Helper()
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	if user != "" {
		values.Set("user", user)
	}
	return SignInitData(token, values, authDate)
}

func TestValidateInitData_Valid(t *testing.T) {
	v := NewInitDataValidator(testBotToken, time.Hour)

	initData := signedInitData(t, testBotToken, time.Now().Add(-time.Minute),
		`{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost","language_code":"ru"}`)

	customer, err := v.Validate(initData)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if customer.ID != 279058397 {
		t.Errorf("customer ID: got %d, want 279058397", customer.ID)
	}
	if customer.Username != "vdkfrost" {
		t.Errorf("username: got %q, want vdkfrost", customer.Username)
	}
}

func TestValidateInitData_WrongToken(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)
	initData := signedInitData(t, "654321:OTHER", time.Now(), `{"id":1}`)

	if _, err := v.Validate(initData); !errors.Is(err, ErrInitDataSignature) {
		t.Fatalf("expected ErrInitDataSignature, got: %v", err)
	}
}

func TestValidateInitData_TamperedField(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)
	initData := signedInitData(t, testBotToken, time.Now(), `{"id":1}`)

	values, _ := url.ParseQuery(initData)
	values.Set("user", `{"id":2}`)

	if _, err := v.Validate(values.Encode()); !errors.Is(err, ErrInitDataSignature) {
		t.Fatalf("expected ErrInitDataSignature, got: %v", err)
	}
}

func TestValidateInitData_Expired(t *testing.T) {
	v := NewInitDataValidator(testBotToken, time.Hour)

	initData := signedInitData(t, testBotToken, time.Now().Add(-2*time.Hour), `{"id":1}`)

	if _, err := v.Validate(initData); !errors.Is(err, ErrInitDataExpired) {
		t.Fatalf("expected ErrInitDataExpired, got: %v", err)
	}
}

func TestValidateInitData_MissingHash(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)

	if _, err := v.Validate("auth_date=1&user=%7B%7D"); !errors.Is(err, ErrInitDataMalformed) {
		t.Fatalf("expected ErrInitDataMalformed, got: %v", err)
	}
}

func TestValidateInitData_NoUserStillValid(t *testing.T) {
	v := NewInitDataValidator(testBotToken, 0)
	initData := signedInitData(t, testBotToken, time.Now(), "")

	customer, err := v.Validate(initData)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if customer.ID != 0 {
		t.Errorf("customer ID: got %d, want 0", customer.ID)
	}
}

func TestValidateInitData_EmptyBotToken(t *testing.T) {
	v := NewInitDataValidator("", 0)
	initData := signedInitData(t, "", time.Now(), `{"id":1}`)

	if _, err := v.Validate(initData); !errors.Is(err, ErrInitDataSignature) {
		t.Fatalf("expected ErrInitDataSignature, got: %v", err)
	}
}
