package auth

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chess_mate/internal/adapters"
	apperrors "chess_mate/internal/errors"
	"chess_mate/internal/httpresponse"
	"chess_mate/internal/repository"
	authUC "chess_mate/internal/usecase/auth"
	"chess_mate/internal/utils"
)

const sessionCookieName = "sessionID"

type AuthHandler struct {
	usecaseHandler *authUC.AuthUsecaseHandler
	log            *zap.SugaredLogger
}

type LoginRequest struct {
	Username string `json:"username"`
}

func NewAuthHandler(redis *adapters.AdapterRedis, mongo *adapters.AdapterMongo, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		usecaseHandler: authUC.NewAuthUsecaseHandler(
			repository.NewMongoUserStorage(mongo.Database),
			repository.NewSessionRedisStorage(redis.GetClient(), log),
		),
		log: log,
	}
}

// Login opens a guest session for the given username, creating the user on
// first sight, and sets the session cookie.
func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginData LoginRequest
	if err := utils.DecodeJSONRequest(r, &loginData); err != nil {
		a.log.Error("Login: malformed JSON: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	sessionID, loggedIn, err := a.usecaseHandler.LoginGuest(r.Context(), loginData.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
				httpresponse.ErrorResponse{ErrorDescription: "username is required"})
			return
		}
		a.log.Error("Login: internal error: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(10 * time.Hour),
		Secure:   true,
		HttpOnly: true,
	})
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, loggedIn)
}

func (a *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionIDCookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: http.ErrNoCookie.Error()})
		return
	}
	if err := a.usecaseHandler.LogoutUser(r.Context(), sessionIDCookie.Value); err != nil {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// GetUserID resolves the authenticated user from the session cookie.
func (a *AuthHandler) GetUserID(r *http.Request) (string, bool) {
	sessionIDCookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	u, ok := a.usecaseHandler.CheckAuthorized(r.Context(), sessionIDCookie.Value)
	if !ok {
		return "", false
	}
	return u.ID, true
}
