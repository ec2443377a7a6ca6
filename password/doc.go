// Package password hashes administrator passwords with Argon2id for the
// development backend.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Plaintext passwords are never stored or logged by this package.
package password
