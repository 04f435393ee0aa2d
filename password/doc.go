// Package password hashes and verifies passwords with Argon2id using the PHC
// string format, so stored hashes are self-describing and parameters can be
// raised without invalidating existing hashes.
package password
