// Package credential resolves run-as passwords for service accounts from the
// operating system keyring, so they never have to appear on a command line.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name used when a reference names
// only the account.
const DefaultService = "svcctl"

// ErrNotFound is returned when the keyring has no entry for a reference.
var ErrNotFound = errors.New("credential not found in keyring")

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Ref names one keyring entry.
type Ref struct {
	Service string
	User    string
}

// ParseRef accepts "service/user" or a bare "user", which is looked up under
// DefaultService. Account names of the form DOMAIN\user keep their backslash.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, errors.New("empty credential reference")
	}
	service, user, ok := strings.Cut(s, "/")
	if !ok {
		return Ref{Service: DefaultService, User: s}, nil
	}
	if service == "" || user == "" {
		return Ref{}, fmt.Errorf("invalid credential reference %q", s)
	}
	return Ref{Service: service, User: user}, nil
}

func (r Ref) String() string {
	return r.Service + "/" + r.User
}

// Password returns the secret stored for r.
func Password(r Ref) (string, error) {
	pw, err := keyringGet(r.Service, r.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", r, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup %s: %w", r, err)
	}
	return pw, nil
}

// Store saves password under r, replacing any previous value.
func Store(r Ref, password string) error {
	if err := keyringSet(r.Service, r.User, password); err != nil {
		return fmt.Errorf("keyring store %s: %w", r, err)
	}
	return nil
}

// Forget removes the entry for r. A missing entry is not an error.
func Forget(r Ref) error {
	err := keyringDelete(r.Service, r.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", r, err)
	}
	return nil
}
