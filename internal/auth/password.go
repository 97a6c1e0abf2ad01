package auth

import "golang.org/x/crypto/bcrypt"

// Cache-only accounts keep a bcrypt hash; the plain password never reaches the cache.

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// passwordMatches reports whether plain matches hashed. A malformed hash never matches.
func passwordMatches(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
