package auth

import (
	"crypto/subtle"
	"fmt"
	"sort"

	"pair-relay/domain"
	"pair-relay/errors"

	"github.com/samber/lo"
)

type credential struct {
	identity domain.Identity
	value    string
	hashed   bool
}

// Credentials maps shared secrets to participant identities.
// Values are either plain secrets or argon2id hashes (see HashSecret).
type Credentials struct {
	entries []credential
}

// NewCredentials builds the table from identity -> secret pairs.
func NewCredentials(table map[string]string) (*Credentials, error) {
	if len(table) == 0 {
		return nil, errors.ErrEmptyCredentials
	}
	identities := lo.Keys(table)
	sort.Strings(identities)

	seen := make(map[string]struct{}, len(table))
	entries := make([]credential, 0, len(table))
	for _, identity := range identities {
		value := table[identity]
		if identity == "" || value == "" {
			return nil, fmt.Errorf("%w: identity %q", errors.ErrMalformedCredentials, identity)
		}
		if _, dup := seen[value]; dup {
			return nil, fmt.Errorf("%w: identity %q", errors.ErrDuplicateSecret, identity)
		}
		seen[value] = struct{}{}
		entries = append(entries, credential{
			identity: domain.Identity(identity),
			value:    value,
			hashed:   IsHashed(value),
		})
	}
	return &Credentials{entries: entries}, nil
}

// Resolve returns the identity owning the secret.
// Every entry is compared so the time taken doesn't depend on which one matched.
func (c *Credentials) Resolve(secret string) (domain.Identity, error) {
	var found domain.Identity
	for _, entry := range c.entries {
		if entry.matches(secret) && found == "" {
			found = entry.identity
		}
	}
	if found == "" {
		return "", errors.ErrInvalidCredential
	}
	return found, nil
}

// Identities lists the configured identities in a stable order.
func (c *Credentials) Identities() []domain.Identity {
	return lo.Map(c.entries, func(e credential, _ int) domain.Identity { return e.identity })
}

// Size is the number of configured identities, which is also the room capacity.
func (c *Credentials) Size() int {
	return len(c.entries)
}

func (e credential) matches(secret string) bool {
	if e.hashed {
		ok, err := CompareSecret(secret, e.value)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(e.value)) == 1
}
