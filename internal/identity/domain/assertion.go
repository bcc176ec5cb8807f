package domain

// ProviderAssertion is a verified external-identity assertion, normalized by
// a provider adapter. It carries facts only; the reconciliation engine never
// branches on which provider produced it.
type ProviderAssertion struct {
	// SubjectID is the provider-issued stable subject identifier.
	SubjectID string

	// Email as asserted by the provider. Adapters must only populate this
	// from provider-verified email claims, otherwise email-based linking
	// would allow account takeover by claim spoofing.
	Email string

	// FullName is the display name, may be empty.
	FullName string
}

// Intent signals whether the caller explicitly asked for account creation.
// It is an explicit input to reconciliation, sourced from request state the
// caller owns.
type Intent string

const (
	IntentLogin  Intent = "login"
	IntentSignup Intent = "signup"
)
