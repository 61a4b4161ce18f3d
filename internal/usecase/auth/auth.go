package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	userDomain "chess_mate/internal/domain/user"
	apperrors "chess_mate/internal/errors"
)

type UserStorage interface {
	GetUserByUsername(ctx context.Context, username string) (userDomain.User, error)
	GetUserByID(ctx context.Context, id string) (userDomain.User, error)
	CreateUser(ctx context.Context, u userDomain.User) error
}

type SessionStorage interface {
	GetUserIdBySession(ctx context.Context, sessionID string) (userID string, ok bool)
	StoreSession(ctx context.Context, sessionID string, userID string)
	DeleteSession(ctx context.Context, sessionID string) (ok bool)
}

type AuthUsecaseHandler struct {
	userStorage    UserStorage
	sessionStorage SessionStorage
}

func NewAuthUsecaseHandler(u UserStorage, s SessionStorage) *AuthUsecaseHandler {
	return &AuthUsecaseHandler{
		userStorage:    u,
		sessionStorage: s,
	}
}

// LoginGuest finds or creates the user with the given name and opens a
// fresh session for it.
func (a *AuthUsecaseHandler) LoginGuest(ctx context.Context, username string) (sessionID string, u userDomain.User, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", userDomain.User{}, apperrors.ErrUserNotFound
	}

	u, err = a.userStorage.GetUserByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		now := time.Now()
		u = userDomain.User{
			ID:        uuid.New().String(),
			Username:  username,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = a.userStorage.CreateUser(ctx, u)
	}
	if err != nil {
		return "", userDomain.User{}, err
	}

	sessionID = uuid.New().String()
	a.sessionStorage.StoreSession(ctx, sessionID, u.ID)
	return sessionID, u, nil
}

func (a *AuthUsecaseHandler) CheckAuthorized(ctx context.Context, sessionID string) (userDomain.User, bool) {
	userID, found := a.sessionStorage.GetUserIdBySession(ctx, sessionID)
	if !found {
		return userDomain.User{}, false
	}
	u, err := a.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		return userDomain.User{}, false
	}
	return u, true
}

// LogoutUser returns nil or ErrSessionNotFound.
func (a *AuthUsecaseHandler) LogoutUser(ctx context.Context, sessionID string) error {
	if _, ok := a.sessionStorage.GetUserIdBySession(ctx, sessionID); !ok {
		return apperrors.ErrSessionNotFound
	}
	if !a.sessionStorage.DeleteSession(ctx, sessionID) {
		return apperrors.ErrSessionNotFound
	}
	return nil
}
