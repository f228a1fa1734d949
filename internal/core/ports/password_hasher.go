package ports

// PasswordHasher is a one-way salted hashing capability.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Matches compares in constant time.
	Matches(hash, password string) bool
}
