package aegis

import "errors"

var (
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrStoreRequired is returned by Build when no credential store is set.
	ErrStoreRequired = errors.New("credential store required")
	// ErrVerificationTokenInvalid is returned for malformed, forged or
	// expired email verification tokens.
	ErrVerificationTokenInvalid = errors.New("verification token invalid")
)
