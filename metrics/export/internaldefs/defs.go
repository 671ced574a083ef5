package internaldefs

import (
	kidauth "github.com/kidstube/kidauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   kidauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   kidauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: kidauth.MetricRegisterSuccess, Name: "kidauth_register_success_total", Help: "Successful account registrations."},
	{ID: kidauth.MetricRegisterDuplicate, Name: "kidauth_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: kidauth.MetricRegisterUnderage, Name: "kidauth_register_underage_total", Help: "Registrations rejected by the age gate."},
	{ID: kidauth.MetricEmailVerificationSent, Name: "kidauth_email_verification_sent_total", Help: "Verification emails handed to the mail sender."},
	{ID: kidauth.MetricEmailVerificationSuccess, Name: "kidauth_email_verification_success_total", Help: "Accounts activated by a verification token."},
	{ID: kidauth.MetricEmailVerificationFailure, Name: "kidauth_email_verification_failure_total", Help: "Rejected verification tokens."},
	{ID: kidauth.MetricLoginCodeIssued, Name: "kidauth_login_code_issued_total", Help: "One-time login codes issued over SMS."},
	{ID: kidauth.MetricLoginFailure, Name: "kidauth_login_failure_total", Help: "Failed password login attempts."},
	{ID: kidauth.MetricLoginRateLimited, Name: "kidauth_login_rate_limited_total", Help: "Login attempts blocked by the throttle."},
	{ID: kidauth.MetricLoginSuccess, Name: "kidauth_login_success_total", Help: "Completed two-step logins."},
	{ID: kidauth.MetricLoginCodeRejected, Name: "kidauth_login_code_rejected_total", Help: "Rejected one-time login codes."},
	{ID: kidauth.MetricSessionIssued, Name: "kidauth_session_issued_total", Help: "Session tokens minted."},
	{ID: kidauth.MetricFederatedLogin, Name: "kidauth_federated_login_total", Help: "Federated login attempts with a valid assertion."},
	{ID: kidauth.MetricFederatedNewAccount, Name: "kidauth_federated_new_account_total", Help: "Accounts created on federated first contact."},
	{ID: kidauth.MetricFederatedProfileCompleted, Name: "kidauth_federated_profile_completed_total", Help: "Federated accounts completed with the missing fields."},
	{ID: kidauth.MetricAccountPINSuccess, Name: "kidauth_account_pin_success_total", Help: "Successful parental PIN checks."},
	{ID: kidauth.MetricAccountPINFailure, Name: "kidauth_account_pin_failure_total", Help: "Failed parental PIN checks."},
	{ID: kidauth.MetricProfileCreated, Name: "kidauth_profile_created_total", Help: "Restricted profiles created."},
	{ID: kidauth.MetricProfileUpdated, Name: "kidauth_profile_updated_total", Help: "Restricted profiles updated."},
	{ID: kidauth.MetricProfileDeleted, Name: "kidauth_profile_deleted_total", Help: "Restricted profiles deleted."},
	{ID: kidauth.MetricProfilePINSuccess, Name: "kidauth_profile_pin_success_total", Help: "Successful restricted profile PIN checks."},
	{ID: kidauth.MetricProfilePINFailure, Name: "kidauth_profile_pin_failure_total", Help: "Failed restricted profile PIN checks."},
	{ID: kidauth.MetricSMSDeliveryFailure, Name: "kidauth_sms_delivery_failure_total", Help: "SMS sends that the provider rejected."},
	{ID: kidauth.MetricMailDeliveryFailure, Name: "kidauth_mail_delivery_failure_total", Help: "Email sends that the provider rejected."},
}

var HistogramDefs = []HistogramDef{
	{ID: kidauth.MetricLoginLatency, Name: "kidauth_login_latency_seconds", Help: "Password login step latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed millisecond buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is the metric-name-safe spelling of each bound.
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

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
