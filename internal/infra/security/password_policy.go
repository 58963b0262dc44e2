package security

import (
	"strings"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

const (
	defaultMinPasswordLength   = 10
	defaultMinCharacterClasses = 3
	defaultMinZxcvbnScore      = 3
)

// PasswordPolicy applies rules in order and reports the first violation.
type PasswordPolicy struct {
	rules []PasswordRule
}

// NewPasswordPolicy builds a policy from rules. With no rules it uses the
// default length, character class and strength checks.
func NewPasswordPolicy(rules ...PasswordRule) *PasswordPolicy {
	if len(rules) == 0 {
		rules = []PasswordRule{
			MinLengthRule(defaultMinPasswordLength),
			CharacterClassesRule(defaultMinCharacterClasses),
			StrengthRule(defaultMinZxcvbnScore),
		}
	}
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordPolicy{rules: copied}
}

// Validate implements port.PasswordPolicyValidator.
func (p *PasswordPolicy) Validate(password string, hints ...string) error {
	inputs := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.TrimSpace(h); h != "" {
			inputs = append(inputs, h)
		}
	}

	for _, rule := range p.rules {
		if err := rule(password, inputs); err != nil {
			return err
		}
	}
	return nil
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
