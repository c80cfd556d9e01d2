// Package staging manages the per-chat directories that hold uploads until
// they are archived.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Root struct {
	dir string
}

func New(dir string) *Root {
	return &Root{dir: dir}
}

// Dir returns the chat's staging directory without creating it.
func (r *Root) Dir(chatID int64) string {
	return filepath.Join(r.dir, strconv.FormatInt(chatID, 10))
}

// Ensure creates the chat's staging directory if needed.
func (r *Root) Ensure(chatID int64) (string, error) {
	dir := r.Dir(chatID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir staging for %d: %w", chatID, pathless(err))
	}
	return dir, nil
}

// Stage streams src into <chat dir>/<seq>/<name>. Keeping the sequence in a
// directory leaves the full name length available to the upload. A partial
// upload is removed on failure. Errors name the upload, never the server path.
func (r *Root) Stage(ctx context.Context, chatID int64, seq int, name string, src io.Reader) (string, int64, error) {
	dir, err := r.Ensure(chatID)
	if err != nil {
		return "", 0, err
	}

	seqDir := filepath.Join(dir, fmt.Sprintf("%03d", seq))
	if err := os.Mkdir(seqDir, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", 0, fmt.Errorf("create %s: %w", name, pathless(err))
	}

	path := filepath.Join(seqDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		os.Remove(seqDir)
		return "", 0, fmt.Errorf("create %s: %w", name, pathless(err))
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.RemoveAll(seqDir)
		return "", 0, fmt.Errorf("write %s: %w", name, pathless(err))
	}
	return path, n, nil
}

// pathless drops the file path from fs errors so that they can be shown to
// the chat.
func pathless(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return fmt.Errorf("%s: %w", pe.Op, pe.Err)
	}
	return err
}

// Remove deletes the chat's staging directory and everything in it.
func (r *Root) Remove(chatID int64) error {
	if err := os.RemoveAll(r.Dir(chatID)); err != nil {
		return fmt.Errorf("remove staging for %d: %w", chatID, err)
	}
	return nil
}

// Purge removes chat directories left behind by an earlier process and
// returns how many were removed. Entries not named like a chat ID are kept.
func (r *Root) Purge() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read staging root: %w", err)
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(e.Name(), 10, 64); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.dir, e.Name())); err != nil {
			return n, fmt.Errorf("purge %s: %w", e.Name(), err)
		}
		n++
	}
	return n, nil
}

func (r *Root) Exists(chatID int64) bool {
	_, err := os.Stat(r.Dir(chatID))
	return err == nil
}

// CleanName reduces an uploaded file name to a safe base name. Empty or
// unusable names fall back to file_<seq>.
func CleanName(name string, seq int) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return fmt.Sprintf("file_%d", seq)
	}
	return name
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
