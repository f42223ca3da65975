package security

// PasswordRequest describes one password attempt.
type PasswordRequest struct {
	// FileName is the document name, empty for stream loads.
	FileName string
	// Attempt counts from 1.
	Attempt int
	// Retry is true once a previous password was rejected.
	Retry bool
}

// PasswordPrompt supplies passwords for encrypted documents. Returning ok ==
// false declines, which cancels the load.
type PasswordPrompt interface {
	Password(req PasswordRequest) (password string, ok bool)
}

// PasswordFunc adapts a function to PasswordPrompt.
type PasswordFunc func(req PasswordRequest) (string, bool)

func (f PasswordFunc) Password(req PasswordRequest) (string, bool) { return f(req) }

// StaticPasswords offers each password once, in order, then declines.
func StaticPasswords(passwords ...string) PasswordPrompt {
	return PasswordFunc(func(req PasswordRequest) (string, bool) {
		if req.Attempt < 1 || req.Attempt > len(passwords) {
			return "", false
		}
		return passwords[req.Attempt-1], true
	})
}
