package model

// TanMode is a strong-authentication method offered by an institute.
type TanMode struct {
	ID          string
	Name        string
	NeedsMedium bool
}

// IsUnattended reports whether the mode is the reserved unattended mode.
func (m TanMode) IsUnattended() bool {
	return m.ID == UnattendedTanModeID
}

// UnattendedTanMode returns the reserved mode that requires no challenge.
func UnattendedTanMode() TanMode {
	return TanMode{
		ID:   UnattendedTanModeID,
		Name: "No strong authentication (unattended)",
	}
}

// TanMedium is a secondary authentication device registered with the bank,
// such as a phone for pushTAN or a chipTAN generator.
type TanMedium struct {
	Name  string
	Phone string
}

// TanChallenge is a strong-authentication prompt returned by the bank when an
// operation needs human approval. Data optionally carries structured
// challenge payload (flicker code, photoTAN image) described by DataMimeType.
type TanChallenge struct {
	Text         string
	Data         []byte
	DataMimeType string
	MediumName   string
}

// LoginResult is the outcome of a login dialog. Pending is the serialized
// pending operation handle to resume when Challenge is non-nil.
type LoginResult struct {
	Challenge *TanChallenge
	Pending   []byte
}

// NeedsChallenge reports whether the bank demanded a challenge response.
func (r LoginResult) NeedsChallenge() bool {
	return r.Challenge != nil
}
