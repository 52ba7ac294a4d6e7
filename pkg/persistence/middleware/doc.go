// Package middleware decorates persistence ports: sessions encrypted at rest and
// message logs with personal data masked.
package middleware
