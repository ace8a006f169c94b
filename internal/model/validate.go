package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Messages shown when checkout or profile input is rejected.
const (
	MsgAddressIncomplete = "Please fill in all shipping address fields."
	MsgInvalidEmail      = "Please enter a valid email address."
	MsgInvalidMobile     = "Please enter a valid mobile number (7–15 digits)."
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{7,15}$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	validateErr  error
)

// RegisterCustomValidators registers the contact rules used by address and
// profile validation.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register contact_email validator: %w", err)
	}
	if err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register mobile validator: %w", err)
	}
	return nil
}

func validatorInstance() (*validator.Validate, error) {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validateErr = RegisterCustomValidators(v)
		validate = v
	})
	return validate, validateErr
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Zip:     strings.TrimSpace(a.Zip),
		Country: strings.TrimSpace(a.Country),
		Mobile:  strings.TrimSpace(a.Mobile),
		Email:   strings.TrimSpace(a.Email),
	}
}

// Validate checks a trimmed address. A missing field outranks a malformed
// email, which outranks a malformed mobile number.
func (a ShippingAddress) Validate() error {
	return check(a, MsgAddressIncomplete)
}

// Validate checks the optional contact fields of a profile update.
func (u ProfileUpdate) Validate() error {
	return check(u, "Please check your profile details.")
}

func check(v any, incomplete string) error {
	val, err := validatorInstance()
	if err != nil {
		return err
	}
	err = val.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var first *OpError
	rank := 0
	for _, fe := range fieldErrs {
		r, msg := 1, incomplete
		switch fe.Tag() {
		case "required":
			r = 3
		case "contact_email":
			r, msg = 2, MsgInvalidEmail
		case "mobile":
			r, msg = 1, MsgInvalidMobile
		}
		if r > rank {
			rank = r
			first = NewValidationError(fe.Field(), msg)
		}
	}
	return first
}
