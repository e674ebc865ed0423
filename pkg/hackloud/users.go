package hackloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/me/hackloud/pkg/model"
)

// FetchCurrentUser returns the profile owning token.
func (c *Client) FetchCurrentUser(ctx context.Context, token string) (*model.User, error) {
	const op = "FetchCurrentUser"
	if err := c.checkToken(op, token); err != nil {
		return nil, err
	}
	var u model.User
	if err := c.call(ctx, request{op: op, method: http.MethodGet, path: "/users/own", token: token}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchUserByID returns a public profile.
func (c *Client) FetchUserByID(ctx context.Context, id string) (*model.User, error) {
	const op = "FetchUserByID"
	if id == "" {
		return nil, NewValidationError(op, map[string]string{"id": "The field 'id' is required."})
	}
	var u model.User
	if err := c.call(ctx, request{op: op, method: http.MethodGet, path: "/users/" + url.PathEscape(id)}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every account. The backend only allows admins.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	const op = "ListUsers"
	if err := c.checkToken(op, token); err != nil {
		return nil, err
	}
	var users []model.User
	if err := c.call(ctx, request{op: op, method: http.MethodGet, path: "/users", token: token}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserProfile changes the editable profile fields of the token owner.
func (c *Client) UpdateUserProfile(ctx context.Context, fields model.ProfileUpdate, token string) error {
	const op = "UpdateUserProfile"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	r, err := jsonRequest(op, http.MethodPut, "/users/own", token, fields)
	if err != nil {
		return err
	}
	return c.call(ctx, r, nil)
}

// UpdateAvatar uploads a new avatar image read from content.
func (c *Client) UpdateAvatar(ctx context.Context, name string, content io.Reader, token string) error {
	const op = "UpdateAvatar"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	body, contentType, err := multipartBody("avatar", name, content, nil)
	if err != nil {
		return WrapError(op, err)
	}
	return c.call(ctx, request{op: op, method: http.MethodPut, path: "/users/own/avatar", token: token, body: body, contentType: contentType}, nil)
}

// DeleteAvatar removes the token owner's avatar.
func (c *Client) DeleteAvatar(ctx context.Context, token string) error {
	const op = "DeleteAvatar"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	return c.call(ctx, request{op: op, method: http.MethodDelete, path: "/users/own/avatar", token: token}, nil)
}

// UpdatePassword changes the token owner's password.
func (c *Client) UpdatePassword(ctx context.Context, change model.PasswordChange, token string) error {
	const op = "UpdatePassword"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	r, err := jsonRequest(op, http.MethodPut, "/users/own/password", token, change)
	if err != nil {
		return err
	}
	// A replay after a lost response would present the old password again.
	r.noRetry = true
	return c.call(ctx, r, nil)
}

// AvatarURL returns the public URL of the user's avatar, or "" if none.
func (c *Client) AvatarURL(u *model.User) string {
	if u == nil || u.Avatar == "" {
		return ""
	}
	return c.config.StaticURL + "/" + u.Avatar
}

// multipartBody encodes content as a single file part plus extra fields.
// The body is buffered so retries can replay it.
func multipartBody(field, name string, content io.Reader, extra map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("copy %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
