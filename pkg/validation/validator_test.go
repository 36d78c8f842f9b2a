package validation

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	UserName    string     `json:"userName" validate:"required,email"`
	Password    string     `json:"password" validate:"required,pwd"`
	Phone       string     `json:"phone" validate:"omitempty,phone"`
	Role        string     `json:"role" validate:"omitempty,oneof=user admin"`
	DateOfBirth *time.Time `json:"dateOfBirth" validate:"omitempty,pastdate"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestToDetails(t *testing.T) {
	v := newValidator()
	future := time.Now().Add(24 * time.Hour)

	err := v.Struct(signupForm{
		UserName:    "nope",
		Password:    "12345",
		Phone:       "555",
		Role:        "root",
		DateOfBirth: &future,
	})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"userName":    "must be a valid email",
		"password":    "must be at least 6 characters long",
		"phone":       "must be a valid phone number",
		"role":        "must be one of: user, admin",
		"dateOfBirth": "must be in the past",
	}, ToDetails(err))
}

func TestValidFormPasses(t *testing.T) {
	past := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	err := newValidator().Struct(signupForm{
		UserName:    "ada@example.com",
		Password:    "secret1",
		Phone:       "+441234567890",
		Role:        "admin",
		DateOfBirth: &past,
	})
	assert.NoError(t, err)
}

func TestToDetailsDecodeErrors(t *testing.T) {
	var dst struct {
		PageSize int `json:"pageSize"`
	}
	err := json.Unmarshal([]byte(`{"pageSize":"ten"}`), &dst)
	assert.Equal(t, map[string]string{"pageSize": "must be a int"}, ToDetails(err))

	err = json.Unmarshal([]byte(`{`), &dst)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Equal(t, map[string]string{"payload": "request body is empty"}, ToDetails(io.EOF))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("other")))
	assert.Nil(t, ToDetails(nil))
}
