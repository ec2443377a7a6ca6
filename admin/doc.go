// Package admin provides typed access to the administration resources of the
// backend: dashboard analytics, users, events, reports and notifications.
//
// Every call goes through a [gateway.Gateway], so the session token is
// attached and a 401 tears the session down exactly as it does for the
// authentication operations. Pagination parameters and totals are passed
// through unchanged.
package admin
