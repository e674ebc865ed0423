package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/hackloud/pkg/model"
)

func (s *Server) handleListStorage(w http.ResponseWriter, r *http.Request) {
	owner := accountFromContext(r.Context()).user.ID
	s.mu.RLock()
	items := make([]model.StorageItem, 0)
	for _, b := range s.items {
		if b.owner == owner {
			items = append(items, b.item)
		}
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	respondOK(w, RequestIDFromContext(r.Context()), items)
}

type createFolderRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	FolderID string `json:"folderId,omitempty"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	owner := accountFromContext(r.Context()).user.ID
	var in createFolderRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		respondInvalid(w, reqID, "invalid folder", map[string]string{"name": "The field 'name' is required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.FolderID != "" && !s.ownsFolderLocked(owner, in.FolderID) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Folder", in.FolderID))
		return
	}
	now := s.now().UTC()
	item := model.StorageItem{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Type:       model.ItemFolder,
		FolderID:   in.FolderID,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	s.items[item.ID] = &blob{item: item, owner: owner}
	respondCreated(w, reqID, model.IDResponse{ID: item.ID})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	owner := accountFromContext(r.Context()).user.ID

	name, contentType, data, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	folderID := r.FormValue("folderId")

	s.mu.Lock()
	defer s.mu.Unlock()
	if folderID != "" && !s.ownsFolderLocked(owner, folderID) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("Folder", folderID))
		return
	}
	now := s.now().UTC()
	item := model.StorageItem{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        model.ItemFile,
		FolderID:    folderID,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	s.items[item.ID] = &blob{item: item, owner: owner, data: data}
	s.logger.Debug("file stored", "id", item.ID, "name", name, "size", item.Size)
	respondCreated(w, reqID, model.IDResponse{ID: item.ID})
}

func (s *Server) ownsFolderLocked(owner, id string) bool {
	b, ok := s.items[id]
	return ok && b.owner == owner && b.item.Type == model.ItemFolder
}

func (s *Server) handleRenameItem(kind model.ItemType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())
		owner := accountFromContext(r.Context()).user.ID
		id := chi.URLParam(r, "id")
		var in struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		if strings.TrimSpace(in.Name) == "" {
			respondInvalid(w, reqID, "invalid name", map[string]string{"name": "The field 'name' is required."})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		b, ok := s.items[id]
		if !ok || b.owner != owner || b.item.Type != kind {
			respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError(resourceName(kind), id))
			return
		}
		b.item.Name = strings.TrimSpace(in.Name)
		b.item.ModifiedAt = s.now().UTC()
		respondOK(w, reqID, nil)
	}
}

func (s *Server) handleDeleteItem(kind model.ItemType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())
		owner := accountFromContext(r.Context()).user.ID
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		defer s.mu.Unlock()
		b, ok := s.items[id]
		if !ok || b.owner != owner || b.item.Type != kind {
			respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError(resourceName(kind), id))
			return
		}
		removed := s.deleteTreeLocked(id)
		s.logger.Debug("deleted", "id", id, "items", removed)
		respondOK(w, reqID, map[string]int{"deleted": removed})
	}
}

// deleteTreeLocked removes id and, for folders, everything inside it.
func (s *Server) deleteTreeLocked(id string) int {
	n := 1
	for childID, b := range s.items {
		if b.item.FolderID == id {
			n += s.deleteTreeLocked(childID)
		}
	}
	delete(s.items, id)
	return n
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	owner := accountFromContext(r.Context()).user.ID
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	b, ok := s.items[id]
	var data []byte
	var contentType string
	if ok {
		data, contentType = b.data, b.item.ContentType
		ok = b.owner == owner && b.item.Type == model.ItemFile
	}
	s.mu.RUnlock()
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("File", id))
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func resourceName(kind model.ItemType) string {
	if kind == model.ItemFolder {
		return "Folder"
	}
	return "File"
}
