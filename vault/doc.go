// Package vault stores the client's bearer credentials.
//
// A [Vault] owns two slots: the session token, persisted in a durable
// [CookieStore] ([RedisStore] or [SQLiteStore]) so it survives a restart, and
// the OTP token, held in a volatile [MemoryStore] for the length of one
// verification flow.
//
// # Expiry
//
// Every record carries an absolute expiry. Reads past that instant report the
// slot as empty and remove it; there is no background eviction.
//
// # What this package must NOT do
//
//   - Log or format token values ([Record.String] redacts them).
//   - Decide when tokens are written or cleared; that belongs to the caller.
package vault
