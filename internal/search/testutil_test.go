package search

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fotobox/facesearch/internal/drive"
)

// fakeStore is an in-memory Store. Content is keyed by file ID; download and
// probe failures can be injected per ID.
type fakeStore struct {
	mu sync.Mutex

	probeFiles  map[string]*drive.File
	probeErrs   map[string]error
	children    map[string][]drive.File
	content     map[string][]byte
	downloadErr map[string]error
	listErr     error

	probeCalls    int
	listCalls     int
	downloadCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		probeFiles:  make(map[string]*drive.File),
		probeErrs:   make(map[string]error),
		children:    make(map[string][]drive.File),
		content:     make(map[string][]byte),
		downloadErr: make(map[string]error),
	}
}

func (f *fakeStore) ProbeImageFile(_ context.Context, id string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if err, ok := f.probeErrs[id]; ok {
		return nil, err
	}
	return f.probeFiles[id], nil
}

func (f *fakeStore) ListImageChildren(_ context.Context, folderID string) ([]drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.children[folderID], nil
}

func (f *fakeStore) Download(_ context.Context, id string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if err, ok := f.downloadErr[id]; ok {
		return nil, "", err
	}
	data, ok := f.content[id]
	if !ok {
		return nil, "", errors.New("file not found")
	}
	return data, "image/jpeg", nil
}

// fakeEmbedder maps image content to embeddings. Content without an entry
// has no face; content in errContent fails extraction.
type fakeEmbedder struct {
	mu sync.Mutex

	faces      map[string][]float32
	errContent map[string]error

	calls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		faces:      make(map[string][]float32),
		errContent: make(map[string]error),
	}
}

func (f *fakeEmbedder) FirstFaceEmbedding(_ context.Context, imageData []byte) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errContent[string(imageData)]; ok {
		return nil, err
	}
	return f.faces[string(imageData)], nil
}

// newTestService wires a service over the fakes with deterministic options.
func newTestService(store *fakeStore, embedder *fakeEmbedder) *Service {
	return NewService(store, embedder, drive.Links{Domain: "https://drive.google.com"}, zap.NewNop(), Options{
		Threshold:   0.6,
		Concurrency: 2,
	})
}

// addImage registers a candidate file whose content embeds to the given
// vector (nil means no face).
func (f *fakeStore) addImage(e *fakeEmbedder, folderID, id, name string, vec []float32) drive.File {
	file := drive.File{ID: id, Name: name, MimeType: "image/jpeg"}
	content := []byte("content-" + id)
	f.content[id] = content
	f.children[folderID] = append(f.children[folderID], file)
	if vec != nil {
		e.faces[string(content)] = vec
	}
	return file
}
