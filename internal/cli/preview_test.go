package cli

import (
	"testing"

	"github.com/me/hackloud/internal/preview"
)

func TestKeyFromInput(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"lone escape", []byte{0x1b}, preview.KeyEscape},
		{"q", []byte("q"), "q"},
		{"ctrl-c", []byte{0x03}, "q"},
		{"arrow up", []byte{0x1b, '[', 'A'}, ""},
		{"arrow left", []byte{0x1b, '[', 'D'}, ""},
		{"f5", []byte{0x1b, '[', '1', '5', '~'}, ""},
		{"alt-x", []byte{0x1b, 'x'}, ""},
		{"other letter", []byte("x"), ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyFromInput(tt.in); got != tt.want {
				t.Errorf("keyFromInput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
