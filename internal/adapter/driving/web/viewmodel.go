package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/bankster/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/bankster/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/bankster/internal/application"
	"github.com/ericfisherdev/bankster/internal/domain/model"
)

const dateLayout = "02.01.2006 15:04"

// Guidance shown above each wizard state, in markdown.
var guidance = map[application.WizardState]string{
	application.StateSelectTanMode: "Choose how your bank confirms logins. " +
		"**No strong authentication** renews automatically every 90 days; " +
		"every other mode needs you back here when the authentication expires.",
	application.StateSelectTanMedium: "Choose the device that receives the TAN, " +
		"for example the phone registered for pushTAN.",
	application.StateAwaitingChallengeResponse: "Your bank asks for a TAN. " +
		"Enter it below, or approve the login in your banking app and then submit.",
	application.StateError: "The setup did not complete. You can retry the authentication " +
		"or start over with a different TAN mode.",
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(dateLayout)
}

// toAccountRowViewModel converts an account status to a list row.
func toAccountRowViewModel(status model.AuthStatus) vm.AccountRowViewModel {
	row := vm.AccountRowViewModel{
		ID:          status.Account,
		Backend:     status.Backend,
		IsFinTS:     status.Backend == model.BackendFinTS,
		Configured:  status.Configured,
		TanMode:     status.TanMode,
		LastAuth:    formatOptionalDate(status.LastAuth),
		AuthExpires: formatOptionalDate(status.AuthExpires),
		SetupPath:   application.SetupPath("", status.Account),
	}
	if status.TanMode == model.UnattendedTanModeID {
		row.TanMode = model.UnattendedTanMode().Name
	}

	switch {
	case !row.IsFinTS:
		row.StatusLabel, row.StatusClass = "no authentication needed", "ok"
	case !status.Configured:
		row.StatusLabel, row.StatusClass = "not configured", "unconfigured"
	case status.Expired:
		row.StatusLabel, row.StatusClass = "expired", "expired"
	case status.NeedsWarning:
		row.StatusLabel, row.StatusClass = fmt.Sprintf("expires in %d days", status.DaysUntilExpiry), "warning"
	default:
		row.StatusLabel, row.StatusClass = fmt.Sprintf("valid for %d days", status.DaysUntilExpiry), "ok"
	}
	return row
}

func toModeOption(mode model.TanMode) vm.ModeOption {
	return vm.ModeOption{
		ID:          mode.ID,
		Name:        mode.Name,
		NeedsMedium: mode.NeedsMedium,
		Unattended:  mode.IsUnattended(),
	}
}

func toMediumOption(medium model.TanMedium) vm.MediumOption {
	label := medium.Name
	if medium.Phone != "" {
		label += " (" + medium.Phone + ")"
	}
	return vm.MediumOption{Name: medium.Name, Label: label}
}

func toChallengeViewModel(c *model.TanChallenge) *vm.ChallengeViewModel {
	if c == nil {
		return nil
	}
	return &vm.ChallengeViewModel{
		TextHTML:   SanitizeChallengeText(c.Text),
		ImageURI:   ChallengeImageURI(c.Data, c.DataMimeType),
		MediumName: c.MediumName,
	}
}

// wizardErrorMessage returns the message shown for a failed step.
func wizardErrorMessage(step application.WizardStep) string {
	switch {
	case step.Err == nil:
		return ""
	case application.IsSetupExpired(step):
		return "Session expired. Please start over."
	case errors.Is(step.Err, model.ErrNoChallengeResponse):
		return "No TAN provided"
	default:
		return step.Err.Error()
	}
}

// toSetupPageViewModel converts a wizard step into the page view model.
func toSetupPageViewModel(step application.WizardStep, csrf string) vm.SetupPageViewModel {
	path := application.SetupPath("", step.Account)
	page := vm.SetupPageViewModel{
		Account:      step.Account,
		FormAction:   path,
		RestartPath:  path,
		CSRFToken:    csrf,
		GuidanceHTML: RenderMarkdown(guidance[step.State]),
		ErrorMessage: wizardErrorMessage(step),
		Modes:        []vm.ModeOption{},
		Media:        []vm.MediumOption{},
	}

	switch step.State {
	case application.StateSelectTanMode:
		page.Step = pages.ViewSelectTanMode
		for _, mode := range step.Modes {
			page.Modes = append(page.Modes, toModeOption(mode))
		}
	case application.StateSelectTanMedium:
		page.Step = pages.ViewSelectTanMedium
		if step.Mode != nil {
			mode := toModeOption(*step.Mode)
			page.Mode = &mode
		}
		for _, medium := range step.Media {
			page.Media = append(page.Media, toMediumOption(medium))
		}
	case application.StateAwaitingChallengeResponse:
		page.Step = pages.ViewAwaitingTan
		page.Challenge = toChallengeViewModel(step.Challenge)
	case application.StateSuccess:
		page.Step = pages.ViewSuccess
	default:
		page.Step = pages.ViewError
	}
	return page
}
