package fs

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/flowgate/flowgate/model/definition"
	"github.com/flowgate/flowgate/service/dao"
	ddefinition "github.com/flowgate/flowgate/service/dao/definition"
)

// Service loads YAML process definitions from abstract file storage and
// caches parsed documents by id. Use Refresh to discard a cached copy after
// the underlying file changed.
type Service struct {
	baseURL string
	ext     string
	fs      afs.Service
	mu      sync.RWMutex
	cache   map[string]*definition.Definitions
}

var _ ddefinition.Loader = (*Service)(nil)

// New creates a definitions loader rooted at baseURL.
func New(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		ext:     ".yaml",
		fs:      afs.New(),
		cache:   make(map[string]*definition.Definitions),
	}
}

// Load returns parsed definitions, reading and decoding the backing file on
// first use.
func (s *Service) Load(ctx context.Context, definitionsID string) (*definition.Definitions, error) {
	if definitionsID == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	cached, ok := s.cache[definitionsID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	location := url.Join(s.baseURL, definitionsID+s.ext)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check definitions %s: %w", location, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions %s: %w", location, err)
	}
	defs, err := s.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode definitions %s: %w", location, err)
	}
	if defs.ID == "" {
		defs.ID = definitionsID
	}

	s.mu.Lock()
	s.cache[definitionsID] = defs
	s.mu.Unlock()
	return defs, nil
}

// Decode parses YAML definition bytes.
func (s *Service) Decode(data []byte) (*definition.Definitions, error) {
	defs := &definition.Definitions{}
	if err := yaml.Unmarshal(data, defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Refresh discards the cached copy so the next Load re-reads the file.
func (s *Service) Refresh(definitionsID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, definitionsID)
}
