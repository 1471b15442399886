package flows

import "time"

// User is the flow-local view of an account.
type User struct {
	ID           int64
	PasswordHash string
	Active       bool
}

// Deps groups flow dependency sets. The engine builds this once and
// delegates each request to the matching flow.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
}

func nowOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
