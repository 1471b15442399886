package security

import "time"

// minArgonMemoryKiB is the memory cost below which a warning is raised.
const minArgonMemoryKiB = 64 * 1024

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report summarises the effective security posture of an engine and the
// request defenses configured around it.
type Report struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Argon2             PasswordReport
	TokenStore         string
	SecureCookies      bool
	CSRFActive         bool
	RateLimitingActive bool
	RateLimitMaxKeys   int
	TrustedProxies     int
	AuditActive        bool
	Warnings           []string
}

type ReportInput struct {
	SigningAlgorithm string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Password         PasswordReport
	TokenStore       string
	HTTPSOnly        bool
	CSRFEnabled      bool
	RateLimitEnabled bool
	RateLimitMaxKeys int
	TrustedProxies   int
	AuditEnabled     bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:   input.SigningAlgorithm,
		AccessTTL:          input.AccessTTL,
		RefreshTTL:         input.RefreshTTL,
		Argon2:             input.Password,
		TokenStore:         input.TokenStore,
		SecureCookies:      input.HTTPSOnly,
		CSRFActive:         input.CSRFEnabled,
		RateLimitingActive: input.RateLimitEnabled && input.RateLimitMaxKeys > 0,
		RateLimitMaxKeys:   input.RateLimitMaxKeys,
		TrustedProxies:     input.TrustedProxies,
		AuditActive:        input.AuditEnabled,
	}

	if !r.SecureCookies {
		r.Warnings = append(r.Warnings, "refresh and csrf cookies are sent without the Secure attribute")
	}
	if !r.CSRFActive {
		r.Warnings = append(r.Warnings, "csrf protection is disabled")
	}
	if !r.RateLimitingActive {
		r.Warnings = append(r.Warnings, "rate limiting is disabled")
	}
	if r.TrustedProxies == 0 {
		r.Warnings = append(r.Warnings, "no trusted proxies: clients behind a proxy share one rate limit key")
	}
	if r.Argon2.Memory < minArgonMemoryKiB {
		r.Warnings = append(r.Warnings, "argon2 memory cost is below 64 MiB")
	}
	if r.AccessTTL > time.Hour {
		r.Warnings = append(r.Warnings, "access tokens live longer than an hour and cannot be revoked")
	}
	return r
}
