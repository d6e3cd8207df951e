package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/server/models"
	"github.com/dmitrijs2005/blogapi/internal/server/services"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (rt *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(rt.started).Seconds()),
	})
}

func (rt *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var body signupRequest
	if err := decodeSanitized(w, req, &body); err != nil {
		rt.writeError(w, req, err)
		return
	}

	user, err := rt.credentials.Register(req.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			rt.logger.Security(req.Context(), "signup conflict",
				"ip", getClientIP(req.Context()),
				"email", logging.RedactEmail(services.NormalizeEmail(body.Email)))
		}
		rt.writeError(w, req, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (rt *Router) handleSignin(w http.ResponseWriter, req *http.Request) {
	var body signinRequest
	if err := decodeSanitized(w, req, &body); err != nil {
		rt.writeError(w, req, err)
		return
	}

	user, err := rt.credentials.Authenticate(req.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			rt.logger.Security(req.Context(), "failed signin",
				"ip", getClientIP(req.Context()),
				"email", logging.RedactEmail(services.NormalizeEmail(body.Email)))
		}
		rt.writeError(w, req, err)
		return
	}

	token, err := rt.tokens.Issue(user)
	if err != nil {
		rt.writeError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (rt *Router) handleValidate(w http.ResponseWriter, req *http.Request) {
	identity := getIdentity(req.Context())
	if identity == nil {
		rt.writeError(w, req, common.ErrorUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]string{
			"id":    identity.UserID,
			"name":  identity.Name,
			"email": identity.Email,
		},
	})
}

// multipartOverheadBytes leaves room for boundaries and text fields on top
// of the file ceiling.
const multipartOverheadBytes = 64 << 10

func (rt *Router) handleUploadCover(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, rt.config.MaxUploadBytes+multipartOverheadBytes)

	if err := req.ParseMultipartForm(1 << 20); err != nil {
		// covers both malformed multipart and the MaxBytesReader ceiling
		rt.writeError(w, req, common.ErrorValidation)
		return
	}
	defer req.MultipartForm.RemoveAll()

	totalFiles := 0
	for _, headers := range req.MultipartForm.File {
		totalFiles += len(headers)
	}
	if totalFiles > services.MaxFilesPerRequest || len(req.MultipartForm.Value) > services.MaxFieldsPerRequest {
		rt.logger.Security(req.Context(), "upload rejected: part limits",
			"ip", getClientIP(req.Context()), "files", totalFiles)
		rt.writeError(w, req, common.ErrorValidation)
		return
	}

	file, header, err := req.FormFile("cover")
	if err != nil {
		rt.writeError(w, req, common.ErrorValidation)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "cover-upload-*")
	if err != nil {
		rt.writeError(w, req, common.ErrorInternal)
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		rt.writeError(w, req, common.ErrorInternal)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		rt.writeError(w, req, common.ErrorInternal)
		return
	}

	cover, err := rt.uploads.ProcessCover(req.Context(), &services.Upload{
		TempPath:     tmp.Name(),
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
	})
	if err != nil {
		rt.writeError(w, req, err)
		return
	}

	identity := getIdentity(req.Context())
	rt.logger.Info(req.Context(), "cover stored",
		"file", cover.FileName, "user_id", identity.UserID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"file_name":   cover.FileName,
		"public_path": cover.PublicPath,
	})
}
