// Package server exposes the service's HTTP surface: the telephony
// call-setup webhook, the browser session bootstrap API, the two WebSocket
// audio channels, and the monitoring endpoints.
package server
