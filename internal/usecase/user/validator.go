package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	domain "user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
)

// Form field names as they appear in full messages.
const (
	FieldName                 = "Name"
	FieldEmail                = "Email"
	FieldPassword             = "Password"
	FieldPasswordConfirmation = "Password confirmation"
)

// Rule messages.
const (
	msgBlank        = "can't be blank"
	msgInvalid      = "is invalid"
	msgTaken        = "has already been taken"
	msgNameTooLong  = "is too long (maximum is 50 characters)"
	msgPassTooShort = "is too short (minimum is 6 characters)"
	msgNoMatch      = "doesn't match Password"
)

// formValidator evaluates every field rule and collects all failures.
type formValidator struct {
	validate *validator.Validate
}

func newFormValidator() *formValidator {
	return &formValidator{validate: validator.New()}
}

// profile holds the normalized fields shared by signup and edit.
type profile struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (v *formValidator) check(p profile) *pkgerrors.ValidationError {
	ve := &pkgerrors.ValidationError{}

	switch {
	case p.Name == "":
		ve.Add(FieldName, msgBlank)
	case v.validate.Var(p.Name, "max=50") != nil:
		ve.Add(FieldName, msgNameTooLong)
	}

	switch {
	case p.Email == "":
		ve.Add(FieldEmail, msgBlank)
	case v.validate.Var(p.Email, "email,max=255") != nil:
		ve.Add(FieldEmail, msgInvalid)
	}

	switch {
	case p.Password == "":
		ve.Add(FieldPassword, msgBlank)
	case v.validate.Var(p.Password, "min=6") != nil:
		ve.Add(FieldPassword, msgPassTooShort)
	}

	switch {
	case p.PasswordConfirmation == "":
		ve.Add(FieldPasswordConfirmation, msgBlank)
	case p.Password != "" && p.PasswordConfirmation != p.Password:
		ve.Add(FieldPasswordConfirmation, msgNoMatch)
	}

	return ve
}

// normalizeProfile trims the name and normalizes the email. Passwords are kept verbatim.
func normalizeProfile(name, email, password, confirmation string) profile {
	return profile{
		Name:                 strings.TrimSpace(name),
		Email:                domain.NormalizeEmail(email),
		Password:             password,
		PasswordConfirmation: confirmation,
	}
}
