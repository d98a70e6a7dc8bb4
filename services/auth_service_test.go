package services_test

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"chat-relay/services"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenIssuer("test-secret", 24*time.Hour)
	svc := services.NewAuthService(mockRepo, tokens)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)

		// Expect CreateUser to be called with a hashed password, never the plain one
		mockRepo.EXPECT().
			CreateUser("alice", "alice@example.com", gomock.Not("s3cretpass")).
			Return("user-uuid", nil).
			Times(1)

		session, err := svc.Register("alice", "alice@example.com", "s3cretpass")

		req.NoError(err)
		req.Equal(services.Profile{ID: "user-uuid", Username: "alice", Email: "alice@example.com"}, session.User)
		claims, err := tokens.ValidateToken(session.Token)
		req.NoError(err)
		req.Equal("user-uuid", claims.UserID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should never be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		session, err := svc.Register("alice", "alice@example.com", "onlyletters")

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(session.Token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("alice", "duplicate@example.com", gomock.Any()).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("alice", "duplicate@example.com", "s3cretpass")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenIssuer("test-secret", 24*time.Hour)
	svc := services.NewAuthService(mockRepo, tokens)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		hashedPassword, err := auth.HashPassword("s3cretpass")
		req.NoError(err)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByEmail("alice@example.com").
			Return(storedUser, nil).
			Times(1)

		session, err := svc.Login("alice@example.com", "s3cretpass")

		req.NoError(err)
		claims, err := tokens.ValidateToken(session.Token)
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
		req.Equal("alice", session.User.Username)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)
		hashedPassword, err := auth.HashPassword("s3cretpass")
		req.NoError(err)

		mockRepo.EXPECT().
			GetUserByEmail("alice@example.com").
			Return(repositories.User{PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err = svc.Login("alice@example.com", "wrongpass1")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetUserByEmail("unknown@example.com").
			Return(repositories.User{}, errors.ErrUserNotFound).
			Times(1)

		_, err := svc.Login("unknown@example.com", "anyPassword1")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
