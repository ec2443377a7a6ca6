// Package jwt reads and issues the JSON Web Tokens exchanged with the admin
// backend.
//
// Clients never hold the backend's verification key, so [Expiry] only
// inspects the unverified "exp" claim to bound how long a session token is
// kept. [Manager] signs and verifies HS256 tokens for the development backend
// used in integration tests.
package jwt
