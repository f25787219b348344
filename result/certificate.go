package result

import "time"

// CertificateResult is the outcome of inspecting one site's leaf certificate.
type CertificateResult struct {
	SiteID        string    `json:"site_id" yaml:"site_id"`
	SiteName      string    `json:"site_name" yaml:"site_name"`
	URL           string    `json:"url" yaml:"url"`
	Host          string    `json:"host,omitempty" yaml:"host,omitempty"`
	NotBefore     time.Time `json:"not_before,omitzero" yaml:"not_before,omitempty"`
	NotAfter      time.Time `json:"not_after,omitzero" yaml:"not_after,omitempty"`
	DaysRemaining int       `json:"days_remaining" yaml:"days_remaining"`
	Issuer        string    `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Subject       string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Valid         bool      `json:"valid" yaml:"valid"`                 // now lies inside the validity window
	Expired       bool      `json:"expired" yaml:"expired"`             // now is past NotAfter
	NotYetValid   bool      `json:"not_yet_valid" yaml:"not_yet_valid"` // now is before NotBefore
	Status        Status    `json:"status" yaml:"status"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt     time.Time `json:"checked_at" yaml:"checked_at"`
}

// Healthy reports whether the certificate counts towards a healthy run.
// A warning (near expiry) is still healthy.
func (r CertificateResult) Healthy() bool {
	if r.Status == StatusCritical || r.Status == StatusError {
		return false
	}
	return r.Valid
}
