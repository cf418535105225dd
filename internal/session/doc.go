// Package session resolves the bearer token a privileged call should use.
//
// Two roles (admin and manager) each own one credential envelope in the
// device store. A face capture produces a pseudo-token that must be traded
// for a signed token through the face-login exchange before the backend
// accepts it. The Resolver performs that trade lazily and writes the signed
// token back; CallWithRetry forces one more trade when the backend rejects a
// token that looked valid locally.
package session
