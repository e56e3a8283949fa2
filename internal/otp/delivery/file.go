package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
)

const (
	defaultFileDir  = "otp_files"
	defaultFileName = "otp_codes.txt"
)

// File appends codes to per-recipient files under a drop directory. The
// recipient names the file; an empty recipient falls back to a shared sink.
type File struct {
	nopLifecycle

	dir string
	clk clock.Clocker

	// mu keeps concurrent appends to the same file from interleaving lines.
	mu sync.Mutex
}

func NewFile(dir string, clk clock.Clocker) *File {
	if dir == "" {
		dir = defaultFileDir
	}

	return &File{dir: dir, clk: clk}
}

func (*File) Kind() entity.Channel {
	return entity.ChannelFile
}

// CanDeliver creates the drop directory on demand and checks that the target
// file, when it already exists, is still writable.
func (f *File) CanDeliver(ctx context.Context, recipient string) bool {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		slog.WarnContext(ctx, "cannot create code drop directory", "dir", f.dir, "error", err)

		return false
	}

	path := f.path(recipient)
	if _, err := os.Stat(path); err != nil {
		return true
	}

	h, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.WarnContext(ctx, "code drop file is not writable", "path", path, "error", err)

		return false
	}
	_ = h.Close()

	return true
}

func (f *File) Send(ctx context.Context, recipient, code string) error {
	path := f.path(recipient)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("delivery: create drop directory: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("delivery: open drop file: %w", err)
	}
	defer h.Close()

	line := fmt.Sprintf("[%s] OTP code: %s\n", f.clk.Now().Format("2006-01-02 15:04:05"), code)
	if _, err := h.WriteString(line); err != nil {
		return fmt.Errorf("delivery: append code: %w", err)
	}

	slog.InfoContext(ctx, "code saved to file", "path", path)

	return nil
}

func (f *File) path(recipient string) string {
	name := defaultFileName
	if recipient != "" {
		name = strings.ReplaceAll(recipient, "@", "_otp_code_")
	}

	return filepath.Join(f.dir, name)
}
