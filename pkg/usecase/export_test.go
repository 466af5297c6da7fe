package usecase

var (
	CredentialError    = credentialError
	AuthorizeInstaller = authorizeInstaller
)
