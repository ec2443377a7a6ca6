// Package prometheus renders adminauth client metrics in Prometheus text
// exposition format.
//
// [NewExporter] accepts an [adminauth.Client] (or any [Source]) and exposes an
// [http.Handler]. Counter names are prefixed adminauth_*_total; the request
// latency histogram is adminauth_request_latency_seconds and is present only
// when latency histograms are enabled.
//
// Nothing is registered in a global registry; callers mount the Handler.
package prometheus
