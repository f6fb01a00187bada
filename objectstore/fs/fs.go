package fs

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-property-market/objectstore"
	"github.com/pkg/errors"
)

var _ objectstore.Store = (*Store)(nil)

// Store keeps objects as files below a root folder. They are served back through Handler.
type Store struct {
	root    string
	baseURL string
}

func New(root, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "[fs.New] create data folder")
	}
	return &Store{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *Store) Put(ctx context.Context, key, contentType string, r io.Reader) (objectstore.Object, error) {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return objectstore.Object{}, err
	}
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return objectstore.Object{}, errors.Wrap(err, "[fs.Put] create folder")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return objectstore.Object{}, errors.Wrap(err, "[fs.Put] create temp file")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return objectstore.Object{}, errors.Wrap(err, "[fs.Put] write object")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return objectstore.Object{}, errors.Wrap(err, "[fs.Put] move object")
	}
	return objectstore.Object{Key: key, URL: s.URL(key), Size: n, ContentType: contentType}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[fs.Delete]")
	}
	return nil
}

func (s *Store) URL(key string) string {
	return s.baseURL + "/media/" + key
}

// Handler serves GET /media/{key...}. Directories are never listed.
func (s *Store) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := objectstore.CleanKey(r.PathValue("key"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		p := s.path(key)
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, p)
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
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
