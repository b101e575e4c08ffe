package services

import (
	"testing"

	"pair-relay/domain"
	"pair-relay/errors"
	"pair-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockISecretResolver(ctrl)
	tokens := mocks.NewMockITokenIssuer(ctrl)
	svc := NewAuthService(resolver, tokens)

	t.Run("should issue a token when the secret resolves", func(t *testing.T) {
		req := require.New(t)
		resolver.EXPECT().Resolve("alice-secret").Return(domain.Identity("alice"), nil).Times(1)
		tokens.EXPECT().Issue(domain.Identity("alice")).Return("signed", nil).Times(1)

		token, identity, err := svc.Login("alice-secret")

		req.NoError(err)
		req.Equal(domain.Token("signed"), token)
		req.Equal(domain.Identity("alice"), identity)
	})

	t.Run("should not issue anything for an unknown secret", func(t *testing.T) {
		req := require.New(t)
		resolver.EXPECT().Resolve("wrong").Return(domain.Identity(""), errors.ErrInvalidCredential).Times(1)
		tokens.EXPECT().Issue(gomock.Any()).Times(0)

		token, identity, err := svc.Login("wrong")

		req.ErrorIs(err, errors.ErrInvalidCredential)
		req.Empty(token)
		req.Empty(identity)
	})

	t.Run("should surface token generation failures", func(t *testing.T) {
		req := require.New(t)
		resolver.EXPECT().Resolve("bob-secret").Return(domain.Identity("bob"), nil)
		tokens.EXPECT().Issue(domain.Identity("bob")).Return("", errors.ErrTokenGeneration)

		_, _, err := svc.Login("bob-secret")

		req.ErrorIs(err, errors.ErrTokenGeneration)
	})
}

func TestAuthService_Resume(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockISecretResolver(ctrl)
	tokens := mocks.NewMockITokenIssuer(ctrl)
	svc := NewAuthService(resolver, tokens)

	t.Run("should refresh a valid token without the secret", func(t *testing.T) {
		req := require.New(t)
		resolver.EXPECT().Resolve(gomock.Any()).Times(0)
		tokens.EXPECT().Verify("old").Return(domain.Identity("alice"), nil)
		tokens.EXPECT().Issue(domain.Identity("alice")).Return("fresh", nil)

		token, identity, err := svc.Resume("old")

		req.NoError(err)
		req.Equal(domain.Token("fresh"), token)
		req.Equal(domain.Identity("alice"), identity)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)
		tokens.EXPECT().Verify("stale").Return(domain.Identity(""), errors.ErrTokenExpired)

		_, _, err := svc.Resume("stale")

		req.ErrorIs(err, errors.ErrTokenExpired)
	})
}
