package application_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

func TestErrorClassifier_Classify(t *testing.T) {
	c := application.NewErrorClassifier(application.DefaultClassifierRules())

	tests := []struct {
		name string
		err  error
		want application.ErrorCategory
	}{
		{"nil", nil, application.CategoryOther},
		{"invalid dialog id", errors.New("9010 Ungültige Dialogkennung"), application.CategoryAuthInvalidated},
		{"dialog ended", errors.New("error 9120: Dialog bereits beendet"), application.CategoryAuthInvalidated},
		{"dialog aborted", errDialogAborted, application.CategoryAuthInvalidated},
		{"wrapped", fmt.Errorf("fetch statement: %w", errDialogAborted), application.CategoryAuthInvalidated},
		{"remote code", &model.RemoteError{Code: "9010"}, application.CategoryAuthInvalidated},
		{"network", errors.New("dial tcp: connection refused"), application.CategoryOther},
		{"wrong pin", &model.RemoteError{Code: "9931", Message: "PIN falsch"}, application.CategoryOther},
		{"challenge for account with code in id", &model.ChallengeRequiredError{Account: "giro-9800"}, application.CategoryOther},
		{"expired account with code in id", &model.AuthExpiredError{Account: "9010"}, application.CategoryOther},
		{"wrapped not configured", fmt.Errorf("account 9120: %w", model.ErrNotConfigured), application.CategoryOther},
		{"remote wrapped with account id", fmt.Errorf("import giro-9800: %w", &model.RemoteError{Code: "9931", Message: "PIN falsch"}), application.CategoryOther},
		{"remote code in message", fmt.Errorf("import giro: %w", &model.RemoteError{Message: "9800 Dialog abgebrochen"}), application.CategoryAuthInvalidated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.err))
		})
	}
}

func TestErrorClassifier_RemoteCodeMatchedExactly(t *testing.T) {
	c := application.NewErrorClassifier([]application.ClassifierRule{
		{Code: "9010", Category: application.CategoryOther},
		{Code: "3920", Category: application.CategoryAuthInvalidated},
	})

	// The message mentions 9010 but the structured code wins.
	err := &model.RemoteError{Code: "3920", Message: "see 9010"}
	assert.True(t, c.IsAuthError(err))
}

func TestErrorClassifier_FirstRuleWins(t *testing.T) {
	c := application.NewErrorClassifier([]application.ClassifierRule{
		{Code: "9800", Category: application.CategoryOther},
		{Code: "9800", Category: application.CategoryAuthInvalidated},
	})
	assert.False(t, c.IsAuthError(errDialogAborted))
}

func TestPolicy_SkipsAnonymousDialog(t *testing.T) {
	p := application.DefaultPolicy()
	assert.True(t, p.SkipsAnonymousDialog("50010517"))
	assert.True(t, p.SkipsAnonymousDialog(" 50010517 "))
	assert.False(t, p.SkipsAnonymousDialog("12030000"))
}

func TestPolicy_IsAnonymousDialogRejection(t *testing.T) {
	p := application.DefaultPolicy()
	assert.True(t, p.IsAnonymousDialogRejection(errors.New("9050 Der anonyme Dialog wird nicht unterstützt")))
	assert.True(t, p.IsAnonymousDialogRejection(errors.New("anonymous access denied")))
	assert.False(t, p.IsAnonymousDialogRejection(errors.New("timeout")))
	assert.False(t, p.IsAnonymousDialogRejection(nil))
}

func TestPolicyProvider_ReplaceSwapsClassifier(t *testing.T) {
	provider := application.NewPolicyProvider(application.DefaultPolicy())
	custom := errors.New("3956 Starke Kundenauthentifizierung notwendig")
	assert.False(t, provider.Classifier().IsAuthError(custom))

	p := application.DefaultPolicy()
	p.ClassifierRules = append(p.ClassifierRules, application.ClassifierRule{
		Code: "3956", Category: application.CategoryAuthInvalidated,
	})
	provider.Replace(p)

	assert.True(t, provider.Classifier().IsAuthError(custom))
	assert.Len(t, provider.Get().ClassifierRules, 4)
}
