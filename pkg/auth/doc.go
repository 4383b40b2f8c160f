// Package auth validates client bearer credentials against a user/key table
// loaded once at process startup.
//
// The expected header form is "Authorization: Bearer <user>:<key>". When
// security is administratively disabled the whole table is bypassed and every
// caller is treated as the identity "unknown"; that bypass is a configuration
// state checked before any credential parsing, not a separate code path per
// request shape.
package auth
