package hackloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/me/hackloud/pkg/model"
)

// ListStorage returns every file and folder owned by the token holder.
func (c *Client) ListStorage(ctx context.Context, token string) ([]model.StorageItem, error) {
	const op = "ListStorage"
	if err := c.checkToken(op, token); err != nil {
		return nil, err
	}
	var items []model.StorageItem
	if err := c.call(ctx, request{op: op, method: http.MethodGet, path: "/storage", token: token}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateFolderInput contains parameters for creating a folder.
type CreateFolderInput struct {
	Name     string `json:"name"`
	FolderID string `json:"folderId,omitempty"`
}

// CreateFolder creates a folder and returns its id.
func (c *Client) CreateFolder(ctx context.Context, in CreateFolderInput, token string) (string, error) {
	const op = "CreateFolder"
	if err := c.checkToken(op, token); err != nil {
		return "", err
	}
	if in.Name == "" {
		return "", NewValidationError(op, map[string]string{"name": "The field 'name' is required."})
	}
	r, err := jsonRequest(op, http.MethodPost, "/storage/folders", token, in)
	if err != nil {
		return "", err
	}
	var out model.IDResponse
	if err := c.call(ctx, r, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UploadFile uploads content as a new file, optionally inside folderID.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, folderID, token string) (string, error) {
	const op = "UploadFile"
	if err := c.checkToken(op, token); err != nil {
		return "", err
	}
	var extra map[string]string
	if folderID != "" {
		extra = map[string]string{"folderId": folderID}
	}
	body, contentType, err := multipartBody("file", name, content, extra)
	if err != nil {
		return "", WrapError(op, err)
	}
	var out model.IDResponse
	if err := c.call(ctx, request{op: op, method: http.MethodPost, path: "/storage/files", token: token, body: body, contentType: contentType}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// RenameItem renames a file or folder.
func (c *Client) RenameItem(ctx context.Context, kind model.ItemType, id, name, token string) error {
	const op = "RenameItem"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	if name == "" {
		return NewValidationError(op, map[string]string{"name": "The field 'name' is required."})
	}
	r, err := jsonRequest(op, http.MethodPut, itemPath(kind, id), token, map[string]string{"name": name})
	if err != nil {
		return err
	}
	return c.call(ctx, r, nil)
}

// DeleteItem deletes a file or a folder with its contents.
func (c *Client) DeleteItem(ctx context.Context, kind model.ItemType, id, token string) error {
	const op = "DeleteItem"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	return c.call(ctx, request{op: op, method: http.MethodDelete, path: itemPath(kind, id), token: token}, nil)
}

// Download is the raw content of a stored file.
type Download struct {
	ContentType string
	Data        []byte
}

// DownloadFile fetches the raw bytes of a file.
func (c *Client) DownloadFile(ctx context.Context, fileID, token string) (*Download, error) {
	const op = "DownloadFile"
	if err := c.checkToken(op, token); err != nil {
		return nil, err
	}
	res, err := c.send(ctx, request{op: op, method: http.MethodGet, path: itemPath(model.ItemFile, fileID) + "/download", token: token, accept: "*/*"})
	if err != nil {
		return nil, err
	}
	if res.status >= 400 {
		return nil, c.errorFromBody(op, res)
	}
	return &Download{ContentType: res.header.Get("Content-Type"), Data: res.body}, nil
}

func itemPath(kind model.ItemType, id string) string {
	if kind == model.ItemFolder {
		return "/storage/folders/" + url.PathEscape(id)
	}
	return "/storage/files/" + url.PathEscape(id)
}

// errorFromBody maps an error status of a non-envelope endpoint, using the
// envelope if the backend sent one anyway.
func (c *Client) errorFromBody(op string, res *rawResponse) error {
	var env apiResponse
	_ = json.Unmarshal(res.body, &env)
	return fromResponse(op, res.status, env.Error)
}
