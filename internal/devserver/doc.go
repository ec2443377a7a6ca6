// Package devserver is an in-memory implementation of the administration
// backend. It serves the authentication endpoints and the admin resources
// with the same envelope and status codes as production, and is used by the
// integration tests and by cmd/adminauth-devserver.
//
// Passwords are stored as Argon2id hashes, sessions are HS256 tokens tracked
// by id so they can be revoked, and password-reset codes are TOTP codes with
// a long period delivered through Config.OTPSink.
package devserver
