package internaldefs

import (
	"github.com/agit8or1/passgate"
)

// CounterDef binds one engine counter to its exported wire name.
type CounterDef struct {
	ID   passgate.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported wire name.
type HistogramDef struct {
	ID   passgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in engine ID order.
var CounterDefs = []CounterDef{
	{ID: passgate.MetricLoginSuccess, Name: "passgate_login_success_total", Help: "Successful login attempts."},
	{ID: passgate.MetricLoginFailure, Name: "passgate_login_failure_total", Help: "Failed login attempts."},
	{ID: passgate.MetricLoginRateLimited, Name: "passgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: passgate.MetricTOTPRequired, Name: "passgate_totp_required_total", Help: "Logins answered with a second-factor challenge."},
	{ID: passgate.MetricTOTPSuccess, Name: "passgate_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: passgate.MetricTOTPFailure, Name: "passgate_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: passgate.MetricTOTPEnabled, Name: "passgate_totp_enabled_total", Help: "TOTP enable operations."},
	{ID: passgate.MetricTOTPDisabled, Name: "passgate_totp_disabled_total", Help: "TOTP disable operations."},
	{ID: passgate.MetricBackupCodeUsed, Name: "passgate_backup_code_used_total", Help: "Successful backup-code authentications."},
	{ID: passgate.MetricBackupCodeFailed, Name: "passgate_backup_code_failed_total", Help: "Failed backup-code authentications."},
	{ID: passgate.MetricBackupCodeRegenerated, Name: "passgate_backup_code_regenerated_total", Help: "Backup-code regeneration operations."},
	{ID: passgate.MetricSessionIssued, Name: "passgate_session_issued_total", Help: "Issued session tokens."},
	{ID: passgate.MetricValidateSuccess, Name: "passgate_validate_success_total", Help: "Successful token validations."},
	{ID: passgate.MetricValidateFailure, Name: "passgate_validate_failure_total", Help: "Failed token validations."},
	{ID: passgate.MetricPasswordChangeSuccess, Name: "passgate_password_change_success_total", Help: "Successful password changes."},
	{ID: passgate.MetricPasswordChangeInvalidOld, Name: "passgate_password_change_invalid_old_total", Help: "Password change attempts with invalid old password."},
	{ID: passgate.MetricPasswordChangeReuseRejected, Name: "passgate_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: passgate.MetricValidateLatency, Name: "passgate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramUpperBounds holds the finite bucket upper bounds in seconds.
// The +Inf bucket is implied by the total sample count.
var HistogramUpperBounds = []float64{
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that flatten buckets into per-bound instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets widens a raw snapshot slice to the fixed bucket count,
// zero-filling anything missing.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals. The
// last entry is the total sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
