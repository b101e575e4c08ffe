package services

import (
	"pair-relay/contract"
	"pair-relay/domain"
)

// AuthService is the credential validator: it resolves secrets or prior tokens
// to an identity and issues a fresh session token. It holds no state.
type AuthService struct {
	resolver contract.ISecretResolver
	tokens   contract.ITokenIssuer
}

func NewAuthService(resolver contract.ISecretResolver, tokens contract.ITokenIssuer) *AuthService {
	return &AuthService{resolver: resolver, tokens: tokens}
}

func (s *AuthService) Login(secret string) (domain.Token, domain.Identity, error) {
	// Errors from the resolver are already generic, no identity enumeration possible
	identity, err := s.resolver.Resolve(secret)
	if err != nil {
		return "", "", err
	}
	return s.issue(identity)
}

// Resume lets a reconnecting client present its previous token instead of the secret.
func (s *AuthService) Resume(token string) (domain.Token, domain.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return "", "", err
	}
	return s.issue(identity)
}

func (s *AuthService) issue(identity domain.Identity) (domain.Token, domain.Identity, error) {
	token, err := s.tokens.Issue(identity)
	if err != nil {
		return "", "", err
	}
	return domain.Token(token), identity, nil
}
