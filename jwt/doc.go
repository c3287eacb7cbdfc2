// Package jwt issues and verifies the signed session tokens that carry an
// authenticated identity across stateless requests, using a single symmetric
// key and strict validation semantics suitable for low-latency auth paths.
package jwt
