package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-account-service/accounts"
	"github.com/jrsteele09/go-account-service/auth"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/media"
	"github.com/jrsteele09/go-account-service/token"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateDetailsRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "ok")
	}
}

// PreflightHandler answers OPTIONS requests that carry no Origin.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// RegisterHandler accepts multipart/form-data (with optional avatar and
// coverImage files) or a JSON body.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in auth.RegisterInput

		if isMultipart(r) {
			if err := parseMultipart(r); err != nil {
				writeError(w, r, err)
				return
			}
			avatar, avatarFile, err := formUpload(r, "avatar")
			if err != nil {
				cleanupMultipart(r)
				writeError(w, r, err)
				return
			}
			cover, coverFile, err := formUpload(r, "coverImage")
			defer cleanupMultipart(r, avatarFile, coverFile)
			if err != nil {
				writeError(w, r, err)
				return
			}
			in = auth.RegisterInput{
				Username:   r.FormValue("username"),
				Email:      r.FormValue("email"),
				FullName:   r.FormValue("fullName"),
				Password:   r.FormValue("password"),
				Avatar:     avatar,
				CoverImage: cover,
			}
		} else {
			var body registerRequest
			if err := decodeJSON(r, &body); err != nil {
				writeError(w, r, err)
				return
			}
			in = auth.RegisterInput{Username: body.Username, Email: body.Email, FullName: body.FullName, Password: body.Password}
		}

		account, err := s.accounts.Register(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusCreated, account, "User registered successfully")
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}

		account, pair, err := s.accounts.Login(r.Context(), auth.LoginInput{
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		// Tokens travel only as HttpOnly cookies here.
		s.attachTokens(w, pair)
		writeSuccess(w, http.StatusOK, account, "User logged in successfully")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.MissingCredential("unauthorized request"))
			return
		}
		claims, _ := ClaimsFromContext(r.Context())

		if err := s.accounts.Logout(r.Context(), account.ID, claims); err != nil {
			writeError(w, r, err)
			return
		}

		s.clearTokens(w)
		writeSuccess(w, http.StatusOK, nil, "User logged out")
	}
}

// RefreshTokenHandler rotates the presented refresh token. The new pair is
// set as cookies and echoed in the body for clients without cookie support.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, _, err := s.accounts.Refresh(r.Context(), refreshTokenFromRequest(r))
		if err != nil {
			writeError(w, r, err)
			return
		}

		s.attachTokens(w, pair)
		writeSuccess(w, http.StatusOK, token.Pair{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}, "Access token refreshed successfully")
	}
}

func (s *Server) UpdatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.MissingCredential("unauthorized request"))
			return
		}

		var body updatePasswordRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}

		if err := s.accounts.ChangePassword(r.Context(), account.ID, body.OldPassword, body.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil, "Password updated successfully")
	}
}

func (s *Server) UpdateUserDetailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.MissingCredential("unauthorized request"))
			return
		}

		var body updateDetailsRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, err)
			return
		}

		updated, err := s.accounts.UpdateDetails(r.Context(), account.ID, auth.DetailsInput{
			Username: body.Username,
			Email:    body.Email,
			FullName: body.FullName,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, updated, "User details updated successfully")
	}
}

func (s *Server) GetUserDetailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.MissingCredential("unauthorized request"))
			return
		}
		writeSuccess(w, http.StatusOK, account, "Successfully retrieved current user")
	}
}

func (s *Server) UpdateAvatarHandler() http.HandlerFunc {
	return s.imageHandler("avatar", "Avatar updated successfully", s.accounts.UpdateAvatar)
}

func (s *Server) UpdateCoverImageHandler() http.HandlerFunc {
	return s.imageHandler("coverImage", "Cover image updated successfully", s.accounts.UpdateCoverImage)
}

type imageUpdateFunc func(ctx context.Context, accountID string, upload media.Upload) (*accounts.Account, error)

func (s *Server) imageHandler(field, message string, update imageUpdateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.MissingCredential("unauthorized request"))
			return
		}

		if err := parseMultipart(r); err != nil {
			writeError(w, r, err)
			return
		}
		upload, file, err := formUpload(r, field)
		defer cleanupMultipart(r, file)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if upload == nil {
			writeError(w, r, apperrors.Validation("please provide "+field+" image"))
			return
		}

		updated, err := update(r.Context(), account.ID, *upload)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, updated, message)
	}
}
