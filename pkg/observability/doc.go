// Package observability turns engine lifecycle events into Prometheus metrics and logs.
package observability
