package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/me/hackloud/internal/preview"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newPreviewCmd() *cobra.Command {
	var maxBytes int64

	cmd := &cobra.Command{
		Use:   "preview <file_id>",
		Short: "Preview a file",
		Long: "Preview a file in the terminal. Text is printed inline; images, PDFs and\n" +
			"videos are written to a temporary file whose URI is printed. The temporary\n" +
			"file is removed when the preview is dismissed with Escape or q.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}
			file, err := findItem(ctx, args[0], tok)
			if err != nil {
				return err
			}
			if file.IsFolder() {
				return fmt.Errorf("%s is a folder", file.Name)
			}
			if maxBytes > 0 {
				api := cfg.API()
				api.MaxPreviewBytes = maxBytes
				client = hackloud.NewClient(api, logger)
			}

			m := preview.NewManager(client, preview.WithTempDir(cfg.PreviewDir), preview.WithLogger(logger))
			defer m.Shutdown()

			select {
			case <-m.Open(ctx, file, tok):
			case <-ctx.Done():
				return m.Dismiss(preview.DismissTeardown)
			}

			st := m.State()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.Title())
			if st.Err != "" {
				return fmt.Errorf("%s", st.Err)
			}
			if err := st.Resource.Accept(&renderer{w: out}); err != nil {
				return err
			}
			return waitDismiss(ctx, cmd, m)
		},
	}

	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Truncate text previews after this many bytes")
	return cmd
}

// waitDismiss keeps the preview open until the user dismisses it. Without a
// terminal there is nobody to dismiss it, so it closes at once.
func waitDismiss(ctx context.Context, cmd *cobra.Command, m *preview.Manager) error {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) || !m.State().Resource.Kind.IsBinary() {
		return m.Dismiss(preview.DismissClose)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Press Escape or q to close the preview.")
	old, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(int(in.Fd()), old)

	keys := make(chan []byte, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(keys)
		buf := make([]byte, 16)
		for {
			n, err := in.Read(buf)
			if err != nil {
				return
			}
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case keys <- chunk:
			case <-done:
				return
			}
		}
	}()

	for m.IsOpen() {
		select {
		case <-ctx.Done():
			return m.Dismiss(preview.DismissTeardown)
		case chunk, ok := <-keys:
			if !ok {
				return m.Dismiss(preview.DismissClose)
			}
			switch keyFromInput(chunk) {
			case preview.KeyEscape:
				m.HandleKey(preview.KeyEscape)
			case "q":
				if err := m.Dismiss(preview.DismissClose); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// keyFromInput names the key in one raw terminal read. Only a lone ESC is
// Escape; longer sequences starting with ESC are cursor or function keys.
func keyFromInput(b []byte) string {
	switch {
	case len(b) == 1 && b[0] == 0x1b:
		return preview.KeyEscape
	case len(b) == 1 && (b[0] == 'q' || b[0] == 0x03):
		return "q"
	}
	return ""
}

// renderer prints a preview resource as terminal text.
type renderer struct {
	w io.Writer
}

func (r *renderer) binary(label string, res *preview.Resource) error {
	_, err := fmt.Fprintf(r.w, "%s (%s, %s)\n%s\n", label, res.ContentType, humanize.Bytes(uint64(res.File.Size)), res.Handle.URI())
	return err
}

func (r *renderer) Image(res *preview.Resource) error { return r.binary("Image", res) }
func (r *renderer) PDF(res *preview.Resource) error   { return r.binary("PDF document", res) }
func (r *renderer) Video(res *preview.Resource) error { return r.binary("Video", res) }

func (r *renderer) Text(res *preview.Resource) error {
	text := res.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(r.w, text); err != nil {
		return err
	}
	if res.Truncated {
		_, err := fmt.Fprintln(r.w, "... (truncated)")
		return err
	}
	return nil
}

func (r *renderer) Unsupported(res *preview.Resource) error {
	_, err := fmt.Fprintf(r.w, "%s (%s)\n", res.Message, res.ContentType)
	return err
}
