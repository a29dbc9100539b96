package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"auth-sync/internal/domain"

	"github.com/go-playground/validator/v10"
)

// MinSignUpPasswordLength is checked locally before a registration is sent.
// The identity service applies its own, stricter policy afterwards.
const MinSignUpPasswordLength = 8

// CredentialValidator implements domain.CredentialValidator with validator/v10.
type CredentialValidator struct {
	validate *validator.Validate
}

func NewCredentialValidator() *CredentialValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &CredentialValidator{validate: validate}
}

// loginInput carries the subset of Credentials a login sends.
type loginInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// ValidateLogin checks the fields a login needs.
func (v *CredentialValidator) ValidateLogin(creds domain.Credentials) error {
	input := loginInput{Email: creds.Email, Password: creds.Password}
	if err := v.validate.Struct(input); err != nil {
		return toIdentityError("validate_login", err)
	}
	return nil
}

// ValidateSignUp checks every credential field plus the local password floor.
func (v *CredentialValidator) ValidateSignUp(creds domain.Credentials) error {
	if err := v.validate.Struct(creds); err != nil {
		return toIdentityError("validate_sign_up", err)
	}
	if err := v.validate.Var(creds.Password, fmt.Sprintf("min=%d", MinSignUpPasswordLength)); err != nil {
		return domain.NewIdentityError(domain.KindValidation, "validate_sign_up",
			fmt.Sprintf("password must be at least %d characters long", MinSignUpPasswordLength), err)
	}
	return nil
}

func toIdentityError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewIdentityError(domain.KindValidation, op, "", err)
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, messageFor(fe))
	}
	return domain.NewIdentityError(domain.KindValidation, op, strings.Join(messages, "; "), err)
}

func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
