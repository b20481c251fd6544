package accounts

import (
	"fmt"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PasswordPolicy is the configurable minimum-strength policy applied during
// registration and password changes.
type PasswordPolicy struct {
	MinLength     int  `json:"min_length"`
	MaxLength     int  `json:"max_length"`
	RequireLetter bool `json:"require_letter"`
	RequireDigit  bool `json:"require_digit"`
}

// DefaultPasswordPolicy matches the registration payload constraints used
// across goliatone services: 10..100 characters, at least one letter and one
// digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     10,
		MaxLength:     100,
		RequireLetter: true,
		RequireDigit:  true,
	}
}

// Validate checks the candidate password, returning ErrWeakPassword with the
// offending constraints in metadata.
func (p PasswordPolicy) Validate(password string) error {
	var failures []string

	if p.MinLength > 0 && len(password) < p.MinLength {
		failures = append(failures, fmt.Sprintf("min_length:%d", p.MinLength))
	}

	if p.MaxLength > 0 && len(password) > p.MaxLength {
		failures = append(failures, fmt.Sprintf("max_length:%d", p.MaxLength))
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if p.RequireLetter && !hasLetter {
		failures = append(failures, "require_letter")
	}

	if p.RequireDigit && !hasDigit {
		failures = append(failures, "require_digit")
	}

	if len(failures) > 0 {
		return ErrWeakPassword.WithMetadata(map[string]any{
			"failures": failures,
		})
	}

	return nil
}

// Rule adapts the policy to an ozzo validation rule so payloads can embed it
// in ValidateStruct chains.
func (p PasswordPolicy) Rule() validation.RuleFunc {
	return func(value any) error {
		password, ok := value.(string)
		if !ok {
			return ErrUnableToParseData
		}
		return p.Validate(password)
	}
}
