package flows

// ValidateStatus is the tagged outcome of access-token validation.
type ValidateStatus int

const (
	ValidateOK ValidateStatus = iota
	ValidateInvalid
	ValidateExpired
)

// ValidateResult carries the authenticated user id on success.
type ValidateResult struct {
	Status ValidateStatus
	Err    error
	UserID int64
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess func(token string) (int64, error)
	IsExpired   func(error) bool
}

// RunValidate classifies a bearer token. It performs no I/O.
func RunValidate(token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Status: ValidateInvalid}
	}

	userID, err := deps.ParseAccess(token)
	if err != nil {
		if deps.IsExpired(err) {
			return ValidateResult{Status: ValidateExpired, Err: err}
		}
		return ValidateResult{Status: ValidateInvalid, Err: err}
	}

	return ValidateResult{Status: ValidateOK, UserID: userID}
}
