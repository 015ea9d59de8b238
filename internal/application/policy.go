package application

import (
	"strings"
	"sync"
)

// Policy holds the rules that track the remote system's behavior and must be
// adjustable without a code change.
type Policy struct {
	// ClassifierRules are evaluated in order by the ErrorClassifier.
	ClassifierRules []ClassifierRule `toml:"classifier_rules"`

	// AnonymousDialogUnsupported lists bank codes of institutes that reject
	// the anonymous dialog used for TAN mode discovery. Only the unattended
	// mode is offered for them.
	AnonymousDialogUnsupported []string `toml:"anonymous_dialog_unsupported"`

	// AnonymousDialogMarkers are message fragments identifying a discovery
	// failure caused by a rejected anonymous dialog.
	AnonymousDialogMarkers []string `toml:"anonymous_dialog_markers"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		ClassifierRules:            DefaultClassifierRules(),
		AnonymousDialogUnsupported: []string{"50010517"},
		AnonymousDialogMarkers:     []string{"anonyme Dialog", "anonymous"},
	}
}

// SkipsAnonymousDialog reports whether mode discovery must be skipped for
// the institute.
func (p Policy) SkipsAnonymousDialog(bankCode string) bool {
	code := strings.TrimSpace(bankCode)
	for _, c := range p.AnonymousDialogUnsupported {
		if strings.TrimSpace(c) == code {
			return true
		}
	}
	return false
}

// IsAnonymousDialogRejection reports whether a discovery error means the
// institute refused the anonymous dialog.
func (p Policy) IsAnonymousDialogRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range p.AnonymousDialogMarkers {
		if marker != "" && strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// PolicyProvider enables runtime hot-swap of the policy. It holds a
// mutex-protected policy and its compiled classifier so that an edited
// policy file takes effect without restarting.
type PolicyProvider struct {
	mu         sync.RWMutex
	policy     Policy
	classifier *ErrorClassifier
}

// NewPolicyProvider creates a provider holding the given initial policy.
func NewPolicyProvider(policy Policy) *PolicyProvider {
	return &PolicyProvider{
		policy:     policy,
		classifier: NewErrorClassifier(policy.ClassifierRules),
	}
}

// Get returns the current policy.
func (p *PolicyProvider) Get() Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy
}

// Classifier returns the classifier compiled from the current policy.
func (p *PolicyProvider) Classifier() *ErrorClassifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.classifier
}

// Replace swaps in a new policy. The next caller of Get or Classifier
// receives the new values.
func (p *PolicyProvider) Replace(policy Policy) {
	classifier := NewErrorClassifier(policy.ClassifierRules)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
	p.classifier = classifier
}
