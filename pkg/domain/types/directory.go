package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var (
	directoryOrgPattern    = regexp.MustCompile(`(?i)^[a-z][a-z0-9_]+$`)
	directorySecretPattern = regexp.MustCompile(`(?i)^[a-f0-9]{40,}$`)
)

// DirectoryOrg is the BambooHR company domain used in API paths
type DirectoryOrg string

// Validate checks if the DirectoryOrg is valid
func (o DirectoryOrg) Validate() error {
	if !directoryOrgPattern.MatchString(string(o)) {
		return goerr.New("organization name must start with a letter and contain only letters, digits and underscores", goerr.V("org", o))
	}
	return nil
}

// String returns the string representation of DirectoryOrg
func (o DirectoryOrg) String() string {
	return string(o)
}

// DirectorySecret is a BambooHR API key
type DirectorySecret string

// Validate checks if the DirectorySecret looks like an API key
func (s DirectorySecret) Validate() error {
	if !directorySecretPattern.MatchString(string(s)) {
		return goerr.New("API secret must be at least 40 hex characters", goerr.V("length", len(s)))
	}
	return nil
}

// String returns the string representation of DirectorySecret
func (s DirectorySecret) String() string {
	return string(s)
}
