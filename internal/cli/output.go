package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
	"gopkg.in/yaml.v3"
)

// render writes v in the configured output format. text is used for the
// default format.
func render(w io.Writer, v any, text func(io.Writer) error) error {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printUser(w io.Writer, u *model.User, avatarURL string) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		fmt.Fprintf(tw, "Name:\t%s\n", name)
	}
	if u.Bio != "" {
		fmt.Fprintf(tw, "Bio:\t%s\n", u.Bio)
	}
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	if avatarURL != "" {
		fmt.Fprintf(tw, "Avatar:\t%s\n", avatarURL)
	}
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "Member since:\t%s\n", u.CreatedAt.Format(time.DateOnly))
	}
	return tw.Flush()
}

// size formats a byte count; folders show a dash.
func size(it model.StorageItem) string {
	if it.IsFolder() {
		return "-"
	}
	return humanize.Bytes(uint64(it.Size))
}

// describe turns an API failure into a command error, listing per-field
// validation messages on their own lines.
func describe(op string, err error) error {
	fields := hackloud.FieldErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("%s: %s", op, hackloud.Message(err))
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", op, hackloud.Message(err))
	for _, f := range names {
		fmt.Fprintf(&b, "\n  %s: %s", f, fields[f])
	}
	return errors.New(b.String())
}
