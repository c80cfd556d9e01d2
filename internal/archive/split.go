package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Split cuts the file at path into numbered parts (path.001, path.002, ...)
// of at most maxSize bytes and removes the original. A file that already fits
// is returned unchanged as the only part.
func Split(path string, maxSize int64) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid part size %d", maxSize)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() <= maxSize {
		return []string{path}, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var parts []string
	for n := 1; ; n++ {
		part := fmt.Sprintf("%s.%03d", path, n)
		written, err := writePart(part, src, maxSize)
		if err != nil {
			return nil, fmt.Errorf("write part %d: %w", n, err)
		}
		if written == 0 {
			os.Remove(part)
			break
		}
		parts = append(parts, part)
		if written < maxSize {
			break
		}
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return parts, nil
}

func writePart(path string, src io.Reader, limit int64) (int64, error) {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, nil
}
