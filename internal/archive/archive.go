// Package archive builds the password-protected ZIP delivered to a chat.
package archive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yeka/zip"
)

var ErrNoFiles = errors.New("no files to archive")

// Member is one file to put in the archive under Name.
type Member struct {
	Name string
	Path string
}

type Result struct {
	Path      string
	Size      int64
	Checksum  string
	Members   int
	Encrypted bool
}

// Build writes members to dst in the given order. Members are encrypted with
// AES-256 unless password is empty.
func Build(dst string, members []Member, password string) (Result, error) {
	if len(members) == 0 {
		return Result{}, ErrNoFiles
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return Result{}, fmt.Errorf("create archive: %w", err)
	}

	if err := writeMembers(out, members, password); err != nil {
		out.Close()
		os.Remove(dst)
		return Result{}, err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return Result{}, fmt.Errorf("close archive: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return Result{}, err
	}
	sum, err := Checksum(dst)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Path:      dst,
		Size:      info.Size(),
		Checksum:  sum,
		Members:   len(members),
		Encrypted: password != "",
	}, nil
}

func writeMembers(out io.Writer, members []Member, password string) error {
	zw := zip.NewWriter(out)
	for _, m := range members {
		var (
			w   io.Writer
			err error
		)
		if password != "" {
			w, err = zw.Encrypt(m.Name, password, zip.AES256Encryption)
		} else {
			w, err = zw.Create(m.Name)
		}
		if err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
		if err := copyFile(w, m.Path); err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Checksum returns the hex SHA-256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
