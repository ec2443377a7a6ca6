package prometheus

import "github.com/MrEthical07/adminauth"

type counterDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{ID: adminauth.MetricLoginSuccess, Name: "adminauth_login_success_total", Help: "Successful logins."},
	{ID: adminauth.MetricLoginFailure, Name: "adminauth_login_failure_total", Help: "Logins rejected by the backend."},
	{ID: adminauth.MetricLoginLockedOut, Name: "adminauth_login_locked_out_total", Help: "Login attempts refused locally while locked out."},
	{ID: adminauth.MetricLockoutTriggered, Name: "adminauth_lockout_triggered_total", Help: "Lockouts started after exhausting the attempt allowance."},
	{ID: adminauth.MetricLockoutExpired, Name: "adminauth_lockout_expired_total", Help: "Lockouts that ran out."},
	{ID: adminauth.MetricLoginTransportFailure, Name: "adminauth_login_transport_failure_total", Help: "Logins that failed before the backend judged the credentials."},
	{ID: adminauth.MetricLogout, Name: "adminauth_logout_total", Help: "Logouts."},
	{ID: adminauth.MetricLogoutRemoteFailure, Name: "adminauth_logout_remote_failure_total", Help: "Logouts whose backend notification failed."},
	{ID: adminauth.MetricSessionInvalidated, Name: "adminauth_session_invalidated_total", Help: "Sessions torn down after a 401."},
	{ID: adminauth.MetricOTPVerified, Name: "adminauth_otp_verified_total", Help: "Verified one-time codes."},
	{ID: adminauth.MetricPasswordResetRequest, Name: "adminauth_password_reset_request_total", Help: "Password reset code requests."},
	{ID: adminauth.MetricPasswordResetSuccess, Name: "adminauth_password_reset_success_total", Help: "Completed password resets."},
	{ID: adminauth.MetricPasswordUpdate, Name: "adminauth_password_update_total", Help: "Password changes by a signed-in administrator."},
	{ID: adminauth.MetricRegister, Name: "adminauth_register_total", Help: "Registered accounts."},
	{ID: adminauth.MetricRequestFailure, Name: "adminauth_request_failure_total", Help: "Backend calls answered with a 4xx."},
	{ID: adminauth.MetricRequestTransportFailure, Name: "adminauth_request_transport_failure_total", Help: "Backend calls with no answer or a 5xx."},
}

const (
	latencyName = "adminauth_request_latency_seconds"
	latencyHelp = "Backend round-trip latency."
)

var histogramBounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

func cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	for i := len(raw); i < len(out); i++ {
		out[i] = running
	}
	return out
}
