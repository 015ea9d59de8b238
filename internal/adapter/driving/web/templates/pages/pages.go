// Package pages renders the web GUI pages as templ components.
package pages

// Form step values posted by the setup wizard.
const (
	StepSelectTanMode   = "select_tan_mode"
	StepSelectTanMedium = "select_tan_medium"
	StepAuthenticate    = "authenticate"
	StepSubmitTan       = "submit_tan"
)

// Wizard states rendered by Setup.
const (
	ViewSelectTanMode   = "select_tan_mode"
	ViewSelectTanMedium = "select_tan_medium"
	ViewAwaitingTan     = "awaiting_challenge_response"
	ViewSuccess         = "success"
	ViewError           = "error"
)
