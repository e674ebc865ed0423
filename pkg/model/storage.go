package model

import (
	"path"
	"sort"
	"strings"
	"time"
)

// ItemType distinguishes files from folders in a storage listing.
type ItemType string

const (
	ItemFile   ItemType = "file"
	ItemFolder ItemType = "folder"
)

// StorageItem is a file or folder owned by the current user.
type StorageItem struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Type        ItemType  `json:"type" yaml:"type"`
	FolderID    string    `json:"folderId,omitempty" yaml:"folder_id,omitempty"` // parent folder, empty at root
	ContentType string    `json:"contentType,omitempty" yaml:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty" yaml:"size,omitempty"`
	ShareToken  string    `json:"shareToken,omitempty" yaml:"share_token,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	ModifiedAt  time.Time `json:"modifiedAt" yaml:"modified_at"`
}

// IsFolder returns true for folder entries.
func (i StorageItem) IsFolder() bool {
	return i.Type == ItemFolder
}

// IsShared reports whether the item is reachable through a share link.
func (i StorageItem) IsShared() bool {
	return i.ShareToken != ""
}

// Ext returns the lower-cased file extension including the dot.
func (i StorageItem) Ext() string {
	return strings.ToLower(path.Ext(i.Name))
}

// Folders returns the folders in items, sorted by name.
func Folders(items []StorageItem) []StorageItem {
	var out []StorageItem
	for _, it := range items {
		if it.IsFolder() {
			out = append(out, it)
		}
	}
	sortByName(out)
	return out
}

// FilesIn returns the files whose parent is folderID, sorted by name.
// An empty folderID selects files at the root.
func FilesIn(items []StorageItem, folderID string) []StorageItem {
	var out []StorageItem
	for _, it := range items {
		if it.Type == ItemFile && it.FolderID == folderID {
			out = append(out, it)
		}
	}
	sortByName(out)
	return out
}

// FindItem looks up an item by id.
func FindItem(items []StorageItem, id string) (StorageItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return StorageItem{}, false
}

func sortByName(items []StorageItem) {
	sort.SliceStable(items, func(a, b int) bool {
		return strings.ToLower(items[a].Name) < strings.ToLower(items[b].Name)
	})
}
