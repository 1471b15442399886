package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hardened() ReportInput {
	return ReportInput{
		SigningAlgorithm: "ed25519",
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		Password:         PasswordReport{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32},
		TokenStore:       "postgres",
		HTTPSOnly:        true,
		CSRFEnabled:      true,
		RateLimitEnabled: true,
		RateLimitMaxKeys: 10000,
		TrustedProxies:   1,
		AuditEnabled:     true,
	}
}

func TestBuildReportHardenedHasNoWarnings(t *testing.T) {
	r := BuildReport(hardened())
	assert.Empty(t, r.Warnings)
	assert.True(t, r.RateLimitingActive)
	assert.True(t, r.SecureCookies)
	assert.Equal(t, "postgres", r.TokenStore)
}

func TestBuildReportWarnings(t *testing.T) {
	in := hardened()
	in.HTTPSOnly = false
	in.CSRFEnabled = false
	in.RateLimitMaxKeys = 0
	in.TrustedProxies = 0
	in.Password.Memory = 8 * 1024
	in.AccessTTL = 2 * time.Hour

	r := BuildReport(in)
	assert.False(t, r.RateLimitingActive)
	assert.Len(t, r.Warnings, 6)
	assert.Contains(t, r.Warnings, "csrf protection is disabled")
}
