package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/flowgate/flowgate/internal/clock"
	"github.com/flowgate/flowgate/model/lock"
	"github.com/flowgate/flowgate/service/dao"
	"github.com/flowgate/flowgate/service/dao/ticket"
)

// Service implements a filesystem-backed ticket store on top of the
// abstract file storage service. One JSON document per ticket plus a
// sequence file providing monotonic ids. Suitable for single-host worker
// pools sharing a filesystem; id monotonicity across hosts would need a
// shared sequence, which this implementation does not provide.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.Mutex
}

// Ensure Service implements the ticket store contract.
var _ ticket.Store = (*Service)(nil)

// New creates a ticket store rooted at baseURL.
func New(baseURL string) *Service {
	return &Service{basePath: baseURL, fs: afs.New()}
}

func (s *Service) ticketPath(id int64) string {
	return url.Join(s.basePath, fmt.Sprintf("%d.json", id))
}

func (s *Service) sequencePath() string {
	return url.Join(s.basePath, "sequence")
}

// nextID reads, increments and writes back the sequence file. Callers must
// hold s.mu.
func (s *Service) nextID(ctx context.Context) (int64, error) {
	var seq int64
	exists, err := s.fs.Exists(ctx, s.sequencePath())
	if err != nil {
		return 0, fmt.Errorf("failed to check sequence file: %w", err)
	}
	if exists {
		data, err := s.fs.DownloadWithURL(ctx, s.sequencePath())
		if err != nil {
			return 0, fmt.Errorf("failed to read sequence file: %w", err)
		}
		seq, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupted sequence file: %w", err)
		}
	}
	seq++
	payload := []byte(strconv.FormatInt(seq, 10))
	if err := s.fs.Upload(ctx, s.sequencePath(), file.DefaultFileOsMode, bytes.NewReader(payload)); err != nil {
		return 0, fmt.Errorf("failed to write sequence file: %w", err)
	}
	return seq, nil
}

// Create inserts a new pending ticket.
func (s *Service) Create(ctx context.Context, ownerRequestID, ownerTokenID string, resourceIDs []string) (*lock.Ticket, error) {
	if len(resourceIDs) == 0 {
		return nil, dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}
	t := &lock.Ticket{
		ID:             id,
		OwnerRequestID: ownerRequestID,
		OwnerTokenID:   ownerTokenID,
		ResourceIDs:    append([]string(nil), resourceIDs...),
		CreatedAt:      clock.Now(),
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) save(ctx context.Context, t *lock.Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}
	if err := s.fs.Upload(ctx, s.ticketPath(t.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save ticket %d: %w", t.ID, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, location string) (*lock.Ticket, error) {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket file %s: %w", location, err)
	}
	var t lock.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket %s: %w", location, err)
	}
	return &t, nil
}

func (s *Service) list(ctx context.Context) ([]*lock.Ticket, error) {
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	var tickets []*lock.Ticket
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		t, err := s.load(ctx, url.Join(s.basePath, path.Base(object.Name())))
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// OldestCandidate returns the lowest-id unexpired intersecting ticket.
func (s *Service) OldestCandidate(ctx context.Context, resourceIDs []string, now time.Time) (*lock.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	var oldest *lock.Ticket
	for _, t := range tickets {
		if t.Expired(now) || !t.Intersects(resourceIDs) {
			continue
		}
		if oldest == nil || t.ID < oldest.ID {
			oldest = t
		}
	}
	return oldest, nil
}

// Activate confirms the ticket as holder and sets its lease expiry.
func (s *Service) Activate(ctx context.Context, id int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, s.ticketPath(id))
	if err != nil {
		return fmt.Errorf("failed to check ticket %d: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	t, err := s.load(ctx, s.ticketPath(id))
	if err != nil {
		return err
	}
	due := expiresAt
	t.DueAt = &due
	t.Active = true
	return s.save(ctx, t)
}

// DeleteExpired removes every ticket whose lease lapsed before now.
func (s *Service) DeleteExpired(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets, err := s.list(ctx)
	if err != nil {
		return err
	}
	for _, t := range tickets {
		if !t.Expired(now) {
			continue
		}
		if err := s.fs.Delete(ctx, s.ticketPath(t.ID)); err != nil {
			return fmt.Errorf("failed to delete expired ticket %d: %w", t.ID, err)
		}
	}
	return nil
}

// Delete removes a ticket; absent tickets are ignored so release stays
// idempotent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.fs.Exists(ctx, s.ticketPath(id))
	if err != nil {
		return fmt.Errorf("failed to check ticket %d: %w", id, err)
	}
	if !exists {
		return nil
	}
	return s.fs.Delete(ctx, s.ticketPath(id))
}
