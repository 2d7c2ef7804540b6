package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionCookie is the credential cookie the browser-equivalent client
// carries on every call. Its content is opaque to clients.
const sessionCookie = "auth_token"

const sessionTTL = 7 * 24 * time.Hour

var errNoSession = errors.New("no valid session")

func (s *Server) mintSession(w http.ResponseWriter, userID string) error {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(sessionTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// sessionUserID validates the session cookie and returns the user id it was
// minted for.
func (s *Server) sessionUserID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", errNoSession
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errNoSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errNoSession
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errNoSession
	}
	return sub, nil
}
