package forumguard

import "github.com/MrEthical07/forumguard/internal/security"

type SecurityReport = security.Report

// SecurityReport summarises the engine's effective configuration and lists
// settings that weaken it.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: c.JWT.SigningMethod,
		AccessTTL:        c.JWT.AccessTTL,
		RefreshTTL:       c.JWT.RefreshTTL,
		Password: security.PasswordReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		TokenStore:       c.Store.Backend,
		HTTPSOnly:        c.Security.HTTPSOnly,
		CSRFEnabled:      c.Security.CSRFEnabled,
		RateLimitEnabled: c.RateLimit.Enabled,
		RateLimitMaxKeys: c.RateLimit.MaxTrackedIPs,
		TrustedProxies:   len(c.Network.TrustedProxies),
		AuditEnabled:     c.Audit.Enabled,
	})
}
