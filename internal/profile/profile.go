// Package profile edits the signed-in user's profile and keeps the session
// in step with the backend after each change.
package profile

import (
	"context"
	"io"
	"log/slog"

	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/internal/validate"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// Backend is the subset of the API client the service uses.
type Backend interface {
	FetchCurrentUser(ctx context.Context, token string) (*model.User, error)
	FetchUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, fields model.ProfileUpdate, token string) error
	UpdateAvatar(ctx context.Context, name string, content io.Reader, token string) error
	DeleteAvatar(ctx context.Context, token string) error
	UpdatePassword(ctx context.Context, change model.PasswordChange, token string) error
}

// Session supplies the token and is refreshed after successful edits.
// *session.Manager satisfies it.
type Session interface {
	Token() string
	Refresh(ctx context.Context) bool
}

// Service performs profile operations on behalf of the session's user.
type Service struct {
	backend Backend
	session Session
	logger  *slog.Logger
}

// NewService creates a profile service.
func NewService(backend Backend, session Session, logger *slog.Logger) *Service {
	return &Service{backend: backend, session: session, logger: logging.OrDiscard(logger).With("component", "profile")}
}

func (s *Service) token(op string) (string, error) {
	tok := s.session.Token()
	if tok == "" {
		return "", hackloud.WrapError(op, hackloud.ErrNoToken)
	}
	return tok, nil
}

// Load returns the profile with the given id, or the signed-in user's own
// profile when id is empty.
func (s *Service) Load(ctx context.Context, id string) (*model.User, error) {
	tok, err := s.token("LoadProfile")
	if err != nil {
		return nil, err
	}
	if id != "" {
		return s.backend.FetchUserByID(ctx, id)
	}
	return s.backend.FetchCurrentUser(ctx, tok)
}

// UpdateProfile saves the non-empty fields and returns the updated profile.
func (s *Service) UpdateProfile(ctx context.Context, fields model.ProfileUpdate) (*model.User, error) {
	const op = "UpdateProfile"
	tok, err := s.token(op)
	if err != nil {
		return nil, err
	}
	if fields.IsEmpty() {
		return nil, hackloud.NewError(op, hackloud.KindValidation, "nothing to update")
	}
	if errs := validate.Struct(fields); len(errs) > 0 {
		return nil, hackloud.NewValidationError(op, errs)
	}
	if err := s.backend.UpdateUserProfile(ctx, fields, tok); err != nil {
		return nil, err
	}
	return s.resync(ctx, op, tok)
}

// UpdateAvatar uploads content as the new avatar and returns the updated
// profile.
func (s *Service) UpdateAvatar(ctx context.Context, name string, content io.Reader) (*model.User, error) {
	const op = "UpdateAvatar"
	tok, err := s.token(op)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, hackloud.NewValidationError(op, map[string]string{"avatar": "The field 'avatar' is required."})
	}
	if err := s.backend.UpdateAvatar(ctx, name, content, tok); err != nil {
		return nil, err
	}
	return s.resync(ctx, op, tok)
}

// DeleteAvatar removes the avatar and returns the updated profile.
func (s *Service) DeleteAvatar(ctx context.Context) (*model.User, error) {
	const op = "DeleteAvatar"
	tok, err := s.token(op)
	if err != nil {
		return nil, err
	}
	if err := s.backend.DeleteAvatar(ctx, tok); err != nil {
		return nil, err
	}
	return s.resync(ctx, op, tok)
}

// UpdatePassword changes the password after checking the new one locally.
func (s *Service) UpdatePassword(ctx context.Context, change model.PasswordChange) error {
	const op = "UpdatePassword"
	tok, err := s.token(op)
	if err != nil {
		return err
	}
	if errs := validate.Struct(change); len(errs) > 0 {
		return hackloud.NewValidationError(op, errs)
	}
	return s.backend.UpdatePassword(ctx, change, tok)
}

// resync re-reads the own profile after a confirmed change, then refreshes
// the session. A failed session refresh is logged only.
func (s *Service) resync(ctx context.Context, op, tok string) (*model.User, error) {
	u, err := s.backend.FetchCurrentUser(ctx, tok)
	if err != nil {
		return nil, hackloud.WrapError(op, err)
	}
	if !s.session.Refresh(ctx) {
		s.logger.Warn("session refresh after update failed", "op", op)
	}
	return u, nil
}
