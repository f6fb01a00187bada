package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-property-market/objectstore"
)

var _ objectstore.Store = (*Store)(nil)

type blob struct {
	data        []byte
	contentType string
}

type Store struct {
	baseURL string
	lock    sync.RWMutex
	blobs   map[string]blob
}

func New(baseURL string) *Store {
	return &Store{baseURL: baseURL, blobs: make(map[string]blob)}
}

func (s *Store) Put(_ context.Context, key, contentType string, r io.Reader) (objectstore.Object, error) {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return objectstore.Object{}, err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return objectstore.Object{}, err
	}
	s.lock.Lock()
	s.blobs[key] = blob{data: buf.Bytes(), contentType: contentType}
	s.lock.Unlock()
	return objectstore.Object{Key: key, URL: s.URL(key), Size: n, ContentType: contentType}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *Store) URL(key string) string {
	return s.baseURL + "/media/" + key
}

// Handler serves GET /media/{key...} from memory
func (s *Store) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, contentType, ok := s.Get(r.PathValue("key"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}
}

// Get returns a stored blob, for assertions in tests
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	b, ok := s.blobs[key]
	return b.data, b.contentType, ok
}

func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.blobs)
}
