package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mql_bridge/internal/domain"
)

// ReadState reads a host-written file. A missing file is "no data" (nil, nil);
// any other failure is a transient *domain.IOError.
func ReadState(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.NewIOError("read", path, err)
	}
	return data, nil
}

// RemoveWithRetry deletes path, retrying while the host holds the file.
// A file that is already gone counts as removed.
func RemoveWithRetry(path string, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	if lastErr == nil {
		return nil
	}
	return domain.NewIOError("remove", path, lastErr)
}

// WriteFileAtomic replaces path through a temp file in the same directory so
// a reader never observes a partial snapshot.
func WriteFileAtomic(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return domain.NewIOError("write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return domain.NewIOError("write", path, err)
	}
	return nil
}

// CreateExclusive publishes data at path only if path does not exist.
// Existence of the file is the lock: an occupied path returns an error
// wrapping fs.ErrExist and is left untouched. The content is written to a
// temp file first and hard-linked into place, so the slot never appears empty.
func CreateExclusive(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return domain.NewIOError("write", path, err)
	}
	defer os.Remove(tmpName)

	err = os.Link(tmpName, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("claim %s: %w", path, fs.ErrExist)
	}
	// 하드 링크를 지원하지 않는 파일 시스템
	return createExclusiveDirect(path, data)
}

func createExclusiveDirect(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("claim %s: %w", path, fs.ErrExist)
		}
		return domain.NewIOError("write", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return domain.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return domain.NewIOError("write", path, err)
	}
	return nil
}

// writeTemp writes data to a hidden temp file next to path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
