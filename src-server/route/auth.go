package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hearth/src-server/model"
	"hearth/src-server/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func Auth(muxer *http.ServeMux, as *utils.AppState) {
	type SignupReqBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
		Nickname string `json:"nickname"`
	}

	// sign up and start a session right away
	muxer.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var reqBody SignupReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		reqBody.Email = strings.ToLower(strings.TrimSpace(reqBody.Email))
		switch {
		case reqBody.Email == "" || !strings.Contains(reqBody.Email, "@"):
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a valid email"))
			return
		case len(reqBody.Password) < 8:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Password must be at least 8 characters"))
			return
		case reqBody.FullName == "":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Please provide a full name"))
			return
		case len(reqBody.FullName) > model.ProfileFullNameMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Full name can't be longer than %d characters", model.ProfileFullNameMaxLen)))
			return
		case len(reqBody.Nickname) > model.ProfileNicknameMaxLen:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Nickname can't be longer than %d characters", model.ProfileNicknameMaxLen)))
			return
		}

		exists, err := as.BunDB.
			NewSelect().
			Model((*model.User)(nil)).
			Where("email = ?", reqBody.Email).
			Exists(r.Context())
		switch {
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't check if email exists"))
			return
		case exists:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("An account with this email already exists"))
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(reqBody.Password), bcrypt.DefaultCost)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't hash password"))
			return
		}

		userID := uuid.NewString()
		userModel := model.User{
			ID:           userID,
			Email:        reqBody.Email,
			PasswordHash: string(passwordHash),
			CreatedAt:    time.Now().UTC().Unix(),
		}
		if err := userModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create user: %s", err.Error())))
			return
		}
		profileModel := model.Profile{
			ID:        userID,
			FullName:  utils.CleanupString(reqBody.FullName),
			Nickname:  strings.TrimSpace(reqBody.Nickname),
			CreatedAt: time.Now().UTC().Unix(),
		}
		if err := profileModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf("Can't create profile: %s", err.Error())))
			return
		}

		newSessionSecret := uuid.NewString()
		if _, err := as.BunDB.
			NewInsert().
			Model(&model.Session{
				Secret:           newSessionSecret,
				UserID:           userID,
				CreatedAtUnixUTC: time.Now().UTC().Unix(),
			}).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't create session"))
			return
		}

		switch as.Config.GetDev() {
		case true:
			w.Write([]byte(fmt.Sprintf(`{"sessionSecret": "%s"}`, newSessionSecret)))
		case false:
			w.Header().Set("Set-Cookie", SessionSecretCookieName+"="+newSessionSecret+"; Path=/; HttpOnly; SameSite=Lax")
			w.WriteHeader(http.StatusOK)
		}
	})

	type LoginReqBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// login
	muxer.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var reqBody LoginReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		reqBody.Email = strings.ToLower(strings.TrimSpace(reqBody.Email))

		userModel := new(model.User)
		err := as.BunDB.
			NewSelect().
			Model(userModel).
			Where("email = ?", reqBody.Email).
			Scan(r.Context())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid email or password"))
			return
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't look up user"))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(userModel.PasswordHash), []byte(reqBody.Password)) != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid email or password"))
			return
		}

		newSessionSecret := uuid.NewString()
		if _, err := as.BunDB.
			NewInsert().
			Model(&model.Session{
				Secret:           newSessionSecret,
				UserID:           userModel.ID,
				CreatedAtUnixUTC: time.Now().UTC().Unix(),
			}).
			Exec(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't create session"))
			return
		}

		switch as.Config.GetDev() {
		case true:
			w.Write([]byte(fmt.Sprintf(`{"sessionSecret": "%s"}`, newSessionSecret)))
		case false:
			w.Header().Set("Set-Cookie", SessionSecretCookieName+"="+newSessionSecret+"; Path=/; HttpOnly; SameSite=Lax")
			w.WriteHeader(http.StatusOK)
		}
	})

	// logout
	muxer.HandleFunc("DELETE /auth", func(w http.ResponseWriter, r *http.Request) {
		if sessionCookie, err := r.Cookie(SessionSecretCookieName); err == nil {
			if _, err := as.BunDB.
				NewDelete().
				Model((*model.Session)(nil)).
				Where("secret = ?", strings.TrimSpace(sessionCookie.Value)).
				Exec(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete session"))
				return
			}
		}
		w.Header().Set("Set-Cookie", SessionSecretCookieName+"=; Path=/; HttpOnly; SameSite=Lax")
		w.WriteHeader(http.StatusOK)
	})

	type MeRespBody struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Nickname string `json:"nickname"`
	}

	// current user with profile
	muxer.HandleFunc("GET /auth/me", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		sessionModel, ok := r.Context().Value(SessionCtxKey).(*model.Session)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get session from middleware"))
			return
		}

		userModel := new(model.User)
		if err := as.BunDB.
			NewSelect().
			Model(userModel).
			Where("id = ?", sessionModel.UserID).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get user"))
			return
		}
		profileModel := new(model.Profile)
		if err := as.BunDB.
			NewSelect().
			Model(profileModel).
			Where("id = ?", sessionModel.UserID).
			Scan(r.Context()); err != nil && !errors.Is(err, sql.ErrNoRows) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get profile"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(MeRespBody{
			ID:       userModel.ID,
			Email:    userModel.Email,
			FullName: profileModel.FullName,
			Nickname: profileModel.Nickname,
		}); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't encode response"))
			return
		}
	}))
}
