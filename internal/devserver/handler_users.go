package devserver

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/hackloud/internal/validate"
	"github.com/me/hackloud/pkg/model"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	var in model.Registration
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validate.Struct(in); len(errs) > 0 {
		respondInvalid(w, reqID, "invalid registration", errs)
		return
	}
	u, err := s.createAccount(in, model.RoleUser)
	if err != nil {
		respondError(w, reqID, http.StatusConflict, err)
		return
	}
	s.logger.Info("account registered", "user_id", u.ID, "username", u.Username)
	respondCreated(w, reqID, model.IDResponse{ID: u.ID})
}

// createAccount adds an account unless the username or email is taken.
func (s *Server) createAccount(in model.Registration, role model.UserRole) (*model.User, *model.APIError) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, &model.APIError{Code: model.ErrInternal, Message: "hash password"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if apiErr := s.checkUniqueLocked("", in.Username, in.Email); apiErr != nil {
		return nil, apiErr
	}
	u := model.User{
		ID:        uuid.NewString(),
		Username:  in.Username,
		Email:     strings.ToLower(in.Email),
		Role:      role,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	s.accounts[u.ID] = &account{user: u, hash: hash}
	return &u, nil
}

// checkUniqueLocked reports a conflict if another account than selfID uses
// username or email. Callers hold mu.
func (s *Server) checkUniqueLocked(selfID, username, email string) *model.APIError {
	for id, acc := range s.accounts {
		if id == selfID {
			continue
		}
		if username != "" && strings.EqualFold(acc.user.Username, username) {
			return &model.APIError{Code: model.ErrConflict, Message: "username already in use",
				Details: []model.FieldError{{Field: "username", Message: "already in use"}}}
		}
		if email != "" && strings.EqualFold(acc.user.Email, email) {
			return &model.APIError{Code: model.ErrConflict, Message: "email already in use",
				Details: []model.FieldError{{Field: "email", Message: "already in use"}}}
		}
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	var in model.Credentials
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validate.Struct(in); len(errs) > 0 {
		respondInvalid(w, reqID, "invalid credentials", errs)
		return
	}

	s.mu.RLock()
	var found *account
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.user.Email, in.Email) {
			cp := *acc
			found = &cp
			break
		}
	}
	s.mu.RUnlock()

	if found == nil || !found.user.Active || !checkPassword(found.hash, in.Password) {
		respondError(w, reqID, http.StatusUnauthorized, model.NewUnauthorizedError("wrong email or password"))
		return
	}
	tok, err := s.issueToken(found.user)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{Code: model.ErrInternal, Message: "could not issue token"})
		return
	}
	respondOK(w, reqID, model.TokenResponse{Token: tok})
}

func (s *Server) handleGetOwnUser(w http.ResponseWriter, r *http.Request) {
	s.respondUser(w, r, accountFromContext(r.Context()).user.ID)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.respondUser(w, r, chi.URLParam(r, "id"))
}

func (s *Server) respondUser(w http.ResponseWriter, r *http.Request, id string) {
	reqID := RequestIDFromContext(r.Context())
	s.mu.RLock()
	acc, ok := s.accounts[id]
	var u model.User
	if ok {
		u = acc.user
	}
	s.mu.RUnlock()
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("User", id))
		return
	}
	respondOK(w, reqID, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	users := make([]model.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.user)
	}
	s.mu.RUnlock()
	sortUsers(users)
	respondOK(w, RequestIDFromContext(r.Context()), users)
}

func (s *Server) handleUpdateOwnUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := accountFromContext(r.Context()).user.ID
	var in model.ProfileUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	if errs := validate.Struct(in); len(errs) > 0 {
		respondInvalid(w, reqID, "invalid profile", errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("User", id))
		return
	}
	if apiErr := s.checkUniqueLocked(id, in.Username, in.Email); apiErr != nil {
		respondError(w, reqID, http.StatusConflict, apiErr)
		return
	}
	if in.Username != "" {
		acc.user.Username = in.Username
	}
	if in.Email != "" {
		acc.user.Email = strings.ToLower(in.Email)
	}
	if in.FirstName != "" {
		acc.user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		acc.user.LastName = in.LastName
	}
	if in.Bio != "" {
		acc.user.Bio = in.Bio
	}
	respondOK(w, reqID, nil)
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := accountFromContext(r.Context()).user.ID

	name, contentType, data, ok := readUpload(w, r, "avatar")
	if !ok {
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		respondInvalid(w, reqID, "invalid avatar", map[string]string{"avatar": "The avatar must be an image."})
		return
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("User", id))
		return
	}
	if acc.user.Avatar != "" {
		delete(s.avatars, acc.user.Avatar)
	}
	s.avatars[key] = &blob{item: model.StorageItem{Name: key, ContentType: contentType, Size: int64(len(data))}, owner: id, data: data}
	acc.user.Avatar = key
	respondOK(w, reqID, nil)
}

func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := accountFromContext(r.Context()).user.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || acc.user.Avatar == "" {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Avatar", id))
		return
	}
	delete(s.avatars, acc.user.Avatar)
	acc.user.Avatar = ""
	respondOK(w, reqID, nil)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.RLock()
	b, ok := s.avatars[name]
	s.mu.RUnlock()
	if !ok {
		respondError(w, RequestIDFromContext(r.Context()), http.StatusNotFound, model.NewNotFoundError("Upload", name))
		return
	}
	w.Header().Set("Content-Type", b.item.ContentType)
	w.Write(b.data)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := accountFromContext(r.Context()).user.ID
	var in model.PasswordChange
	if !decodeJSON(w, r, &in) {
		return
	}
	errs := validate.Var("newPassword", in.NewPassword, "required,min=8,max=100")
	if in.OldPassword == "" {
		errs["oldPassword"] = "The field 'oldPassword' is required."
	}
	if in.NewPassword != "" && in.NewPassword == in.OldPassword {
		errs["newPassword"] = "The field 'newPassword' must differ from 'oldPassword'."
	}
	if len(errs) > 0 {
		respondInvalid(w, reqID, "invalid password change", errs)
		return
	}

	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{Code: model.ErrInternal, Message: "hash password"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || !checkPassword(acc.hash, in.OldPassword) {
		respondError(w, reqID, http.StatusUnauthorized, model.NewUnauthorizedError("current password is incorrect"))
		return
	}
	acc.hash = hash
	respondOK(w, reqID, nil)
}

// readUpload reads the single file part named field from a multipart body.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (name, contentType string, data []byte, ok bool) {
	reqID := RequestIDFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, hdr, err := r.FormFile(field)
	if err != nil {
		respondInvalid(w, reqID, "missing upload", map[string]string{field: "The field '" + field + "' is required."})
		return "", "", nil, false
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		respondInvalid(w, reqID, "unreadable upload", map[string]string{field: err.Error()})
		return "", "", nil, false
	}
	contentType = hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(hdr.Filename))); byExt != "" {
			contentType = byExt
		} else {
			contentType = http.DetectContentType(data)
		}
	}
	return hdr.Filename, contentType, data, true
}
