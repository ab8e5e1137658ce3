package contentstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

const fsBatchSize = 256

// FSStore serves units from the *.txt files directly inside one directory.
type FSStore struct {
	dir string
}

var _ Store = (*FSStore)(nil)

func NewFSStore(dir string) *FSStore {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &FSStore{dir: dir}
}

func (s *FSStore) Identity() string {
	return "fs:" + s.dir
}

func (s *FSStore) List(ctx context.Context) iter.Seq2[UnitID, error] {
	return func(yield func(UnitID, error) bool) {
		f, err := os.Open(s.dir)
		if err != nil {
			yield("", s.mapError("", err))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			yield("", s.mapError("", err))
			return
		}
		if !info.IsDir() {
			yield("", newError(ErrBackendUnavailable, s.Identity(), "", errors.New("not a directory")))
			return
		}

		for {
			if err := ctx.Err(); err != nil {
				yield("", newError(ErrBackendUnavailable, s.Identity(), "", err))
				return
			}
			entries, err := f.ReadDir(fsBatchSize)
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), TextSuffix) {
					continue
				}
				if !yield(UnitID(entry.Name()), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", s.mapError("", err))
				return
			}
		}
	}
}

func (s *FSStore) FetchText(ctx context.Context, id UnitID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(ErrBackendUnavailable, s.Identity(), id, err)
	}
	name := string(id)
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", newError(ErrNotFound, s.Identity(), id, errors.New("unit id must be a plain file name"))
	}
	// OpenInRoot refuses names that escape the directory, symlinks included.
	f, err := os.OpenInRoot(s.dir, name)
	if err != nil {
		return "", s.mapError(id, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", s.mapError(id, err)
	}
	return decodeText(s.Identity(), id, data)
}

func (s *FSStore) mapError(id UnitID, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return newError(ErrAccessDenied, s.Identity(), id, err)
	case errors.Is(err, fs.ErrNotExist) && id != "":
		return newError(ErrNotFound, s.Identity(), id, err)
	default:
		// A missing directory means the backend itself is gone.
		return newError(ErrBackendUnavailable, s.Identity(), id, err)
	}
}
