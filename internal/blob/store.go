package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"tienda-be/internal/apperr"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"
)

const tempPrefix = ".upload-"

// DiskStore keeps uploaded images as flat files in one directory and hands
// out public references of the form <prefix>/<name>.
type DiskStore struct {
	fs     afero.Fs
	dir    string
	prefix string
	now    func() time.Time
}

// NewDiskStore creates dir on fs if needed. prefix is the public URL path the
// files are served under, e.g. "/uploads".
func NewDiskStore(fs afero.Fs, dir, prefix string) (*DiskStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{
		fs:     fs,
		dir:    dir,
		prefix: "/" + strings.Trim(prefix, "/"),
		now:    time.Now,
	}, nil
}

func (s *DiskStore) Prefix() string { return s.prefix }

// Save writes r under a generated name and returns its public reference.
// The content is written to a temp file first so a reader never sees a
// partial image.
func (s *DiskStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := afero.TempFile(s.fs, s.dir, tempPrefix+"*")
	if err != nil {
		return "", apperr.Storage(err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return "", apperr.Storage(err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return "", apperr.Storage(err)
	}

	name, err := s.freeName(originalName)
	if err != nil {
		s.fs.Remove(tmpName)
		return "", apperr.Storage(err)
	}
	if err := s.fs.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		s.fs.Remove(tmpName)
		return "", apperr.Storage(err)
	}

	return s.Ref(name), nil
}

// Ref maps a stored file name to its public reference.
func (s *DiskStore) Ref(name string) string {
	return path.Join(s.prefix, name)
}

// NameOf is the inverse of Ref. It reports false for references that do
// not point into this store.
func (s *DiskStore) NameOf(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, s.prefix+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Handler serves stored files. Mount it under Prefix(). Directory listings
// are not served.
func (s *DiskStore) Handler() http.Handler {
	files := http.FileServer(afero.NewHttpFs(s.fs).Dir(s.dir))
	return http.StripPrefix(s.prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := path.Base(r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") || strings.HasPrefix(base, tempPrefix) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

func (s *DiskStore) freeName(originalName string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if e := strings.TrimPrefix(ext, "."); e == "" || slug.Make(e) != e {
		ext = ""
	}
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "imagen"
	}

	name := fmt.Sprintf("%d_%s%s", s.now().UnixMilli(), stem, ext)
	for i := 1; ; i++ {
		_, err := s.fs.Stat(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		name = fmt.Sprintf("%d_%s-%d%s", s.now().UnixMilli(), stem, i, ext)
	}
}
