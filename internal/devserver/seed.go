package devserver

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/me/hackloud/pkg/model"
)

// Demo accounts created by Seed.
const (
	DemoAdminEmail    = "admin@hackloud.dev"
	DemoAdminPassword = "admin1234"
	DemoUserEmail     = "demo@hackloud.dev"
	DemoUserPassword  = "demo12345"
)

// onePixelPNG is a valid 1x1 transparent PNG.
var onePixelPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Seed creates an admin and a regular demo account. The regular account
// gets a small folder tree to browse and preview.
func (s *Server) Seed() error {
	if _, apiErr := s.createAccount(model.Registration{Username: "admin", Email: DemoAdminEmail, Password: DemoAdminPassword}, model.RoleAdmin); apiErr != nil {
		return fmt.Errorf("seed admin: %s", apiErr.Message)
	}
	demo, apiErr := s.createAccount(model.Registration{Username: "demo", Email: DemoUserEmail, Password: DemoUserPassword}, model.RoleUser)
	if apiErr != nil {
		return fmt.Errorf("seed demo: %s", apiErr.Message)
	}

	now := s.now().UTC()
	photos := model.StorageItem{ID: uuid.NewString(), Name: "Photos", Type: model.ItemFolder, ShareToken: uuid.NewString(), CreatedAt: now, ModifiedAt: now}
	files := []struct {
		item model.StorageItem
		data []byte
	}{
		{model.StorageItem{Name: "welcome.txt", ContentType: "text/plain; charset=utf-8"}, []byte("Welcome to Mi Disco Duro!\n")},
		{model.StorageItem{Name: "pixel.png", ContentType: "image/png", FolderID: photos.ID}, onePixelPNG},
		{model.StorageItem{Name: "backup.zip", ContentType: "application/zip"}, []byte("PK\x05\x06" + string(make([]byte, 18)))},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[photos.ID] = &blob{item: photos, owner: demo.ID}
	for _, f := range files {
		it := f.item
		it.ID = uuid.NewString()
		it.Type = model.ItemFile
		it.Size = int64(len(f.data))
		it.CreatedAt, it.ModifiedAt = now, now
		s.items[it.ID] = &blob{item: it, owner: demo.ID, data: f.data}
	}
	s.logger.Info("seeded demo accounts", "admin", DemoAdminEmail, "user", DemoUserEmail)
	return nil
}

func sortUsers(users []model.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Username < users[j].Username
	})
}
