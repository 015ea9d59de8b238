package application

import (
	"errors"
	"strings"

	"github.com/ericfisherdev/bankster/internal/domain/model"
)

// ErrorCategory is the classification of an error returned by the banking
// protocol client.
type ErrorCategory string

const (
	CategoryAuthInvalidated ErrorCategory = "auth_invalidated"
	CategoryOther           ErrorCategory = "other"
)

// ClassifierRule maps a bank return code to a category.
type ClassifierRule struct {
	Code        string        `toml:"code"`
	Category    ErrorCategory `toml:"category"`
	Description string        `toml:"description"`
}

// DefaultClassifierRules are the FinTS return codes that mean the dialog is
// no longer valid.
func DefaultClassifierRules() []ClassifierRule {
	return []ClassifierRule{
		{Code: "9010", Category: CategoryAuthInvalidated, Description: "Ungültige Dialogkennung"},
		{Code: "9120", Category: CategoryAuthInvalidated, Description: "Dialog bereits beendet oder abgebrochen"},
		{Code: "9800", Category: CategoryAuthInvalidated, Description: "Der Dialog wurde abgebrochen"},
	}
}

// ErrorClassifier decides whether a remote error invalidated the session.
//
// The bank reports failures as free text with the return code embedded, so
// matching is by substring over the error message. A reworded message can
// slip through as CategoryOther; false positives are unlikely because the
// codes are specific. A *model.RemoteError is matched on its Code first and
// then on its Message only, so context added by wrapping (account ids, paths)
// never takes part. Domain errors raised by this module are never
// classified as invalidated.
type ErrorClassifier struct {
	rules []ClassifierRule
}

// NewErrorClassifier creates a classifier evaluating rules in order; the
// first matching rule wins.
func NewErrorClassifier(rules []ClassifierRule) *ErrorClassifier {
	return &ErrorClassifier{rules: append([]ClassifierRule(nil), rules...)}
}

// Classify returns the category of err. A nil error is CategoryOther.
func (c *ErrorClassifier) Classify(err error) ErrorCategory {
	if err == nil || isDomainError(err) {
		return CategoryOther
	}

	var remote *model.RemoteError
	if errors.As(err, &remote) {
		if remote.Code != "" {
			for _, rule := range c.rules {
				if rule.Code == remote.Code {
					return rule.Category
				}
			}
		}
		return c.matchText(remote.Message)
	}
	return c.matchText(err.Error())
}

func (c *ErrorClassifier) matchText(msg string) ErrorCategory {
	for _, rule := range c.rules {
		if rule.Code != "" && strings.Contains(msg, rule.Code) {
			return rule.Category
		}
	}
	return CategoryOther
}

// isDomainError reports whether err was raised by the session lifecycle
// itself rather than by the bank.
func isDomainError(err error) bool {
	var challenge *model.ChallengeRequiredError
	var expired *model.AuthExpiredError
	switch {
	case errors.As(err, &challenge), errors.As(err, &expired):
		return true
	case errors.Is(err, model.ErrNotConfigured),
		errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrUnsupportedBackend),
		errors.Is(err, model.ErrSetupSessionExpired),
		errors.Is(err, model.ErrNoChallengeResponse),
		errors.Is(err, model.ErrUnknownTanMode):
		return true
	}
	return false
}

// IsAuthError reports whether err invalidated the authentication.
func (c *ErrorClassifier) IsAuthError(err error) bool {
	return c.Classify(err) == CategoryAuthInvalidated
}
