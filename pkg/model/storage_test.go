package model

import (
	"testing"
	"time"
)

func sampleItems() []StorageItem {
	now := time.Now()
	return []StorageItem{
		{ID: "d1", Name: "Photos", Type: ItemFolder, ShareToken: "tok", CreatedAt: now},
		{ID: "d0", Name: "archive", Type: ItemFolder, CreatedAt: now},
		{ID: "f1", Name: "beach.PNG", Type: ItemFile, FolderID: "d1", Size: 10},
		{ID: "f2", Name: "Alps.jpg", Type: ItemFile, FolderID: "d1", Size: 20},
		{ID: "f3", Name: "notes.txt", Type: ItemFile, Size: 30},
	}
}

func TestFilesIn(t *testing.T) {
	items := sampleItems()

	got := FilesIn(items, "d1")
	if len(got) != 2 {
		t.Fatalf("FilesIn(d1) length = %d, want 2", len(got))
	}
	if got[0].ID != "f2" || got[1].ID != "f1" {
		t.Errorf("FilesIn(d1) order = %s,%s, want f2,f1", got[0].ID, got[1].ID)
	}

	root := FilesIn(items, "")
	if len(root) != 1 || root[0].ID != "f3" {
		t.Errorf("FilesIn(root) = %+v, want only f3", root)
	}
}

func TestFolders(t *testing.T) {
	got := Folders(sampleItems())
	if len(got) != 2 {
		t.Fatalf("Folders length = %d, want 2", len(got))
	}
	if got[0].Name != "archive" {
		t.Errorf("first folder = %q, want archive", got[0].Name)
	}
}

func TestFindItem_IsShared(t *testing.T) {
	items := sampleItems()
	it, ok := FindItem(items, "d1")
	if !ok {
		t.Fatal("expected d1 to be found")
	}
	if !it.IsShared() {
		t.Error("expected d1 to be shared")
	}
	if _, ok := FindItem(items, "missing"); ok {
		t.Error("expected missing item not to be found")
	}
}

func TestStorageItem_Ext(t *testing.T) {
	it := StorageItem{Name: "beach.PNG"}
	if got := it.Ext(); got != ".png" {
		t.Errorf("Ext() = %q, want .png", got)
	}
}

func TestAverageVote(t *testing.T) {
	if got := AverageVote(nil); got != 0 {
		t.Errorf("AverageVote(nil) = %v, want 0", got)
	}
	got := AverageVote([]Assessment{{Vote: 5}, {Vote: 4}, {Vote: 3}})
	if got != 4 {
		t.Errorf("AverageVote = %v, want 4", got)
	}
}
