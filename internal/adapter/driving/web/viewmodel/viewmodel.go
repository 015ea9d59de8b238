// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// AccountRowViewModel holds presentation-ready data for one row of the
// account list.
type AccountRowViewModel struct {
	ID          string
	Backend     string
	IsFinTS     bool
	Configured  bool
	TanMode     string
	LastAuth    string
	AuthExpires string
	// StatusLabel is a short human-readable expiry state, StatusClass its
	// CSS modifier (ok, warning, expired, unconfigured).
	StatusLabel string
	StatusClass string
	SetupPath   string
}

// AccountListViewModel holds the account list page.
type AccountListViewModel struct {
	Accounts []AccountRowViewModel
}

// ModeOption is one selectable TAN mode.
type ModeOption struct {
	ID          string
	Name        string
	NeedsMedium bool
	Unattended  bool
}

// MediumOption is one selectable TAN medium.
type MediumOption struct {
	Name  string
	Label string
}

// ChallengeViewModel holds a TAN challenge ready for display. TextHTML is
// already sanitized; ImageURI is a data URI for photoTAN style challenges.
type ChallengeViewModel struct {
	TextHTML   string
	ImageURI   string
	MediumName string
}

// SetupPageViewModel holds everything the setup wizard page renders. Step is
// the wizard state name; exactly one of the state specific sections is used.
type SetupPageViewModel struct {
	Account      string
	Step         string
	FormAction   string
	CSRFToken    string
	GuidanceHTML string
	ErrorMessage string

	Modes     []ModeOption
	Mode      *ModeOption
	Media     []MediumOption
	Challenge *ChallengeViewModel

	// SetupMessage is the confirmation returned by the backend's setup check
	// after a successful setup.
	SetupMessage string
	RestartPath  string
}
