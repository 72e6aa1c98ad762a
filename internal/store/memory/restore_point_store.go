package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/edvin/backupd/internal/model"
)

// RestorePointStore is an in-memory store.RestorePointStore.
type RestorePointStore struct {
	mu     sync.Mutex
	points map[string]*model.RestorePoint
}

func NewRestorePointStore() *RestorePointStore {
	return &RestorePointStore{points: make(map[string]*model.RestorePoint)}
}

func (s *RestorePointStore) Create(_ context.Context, rp *model.RestorePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.points[rp.ID]; exists {
		return fmt.Errorf("restore point %s already exists", rp.ID)
	}
	cp := clonePoint(rp)
	s.points[rp.ID] = &cp
	return nil
}

func (s *RestorePointStore) Get(_ context.Context, id string) (*model.RestorePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rp, ok := s.points[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "restore point", ID: id}
	}
	cp := clonePoint(rp)
	return &cp, nil
}

func (s *RestorePointStore) List(_ context.Context) ([]model.RestorePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.RestorePoint, 0, len(s.points))
	for _, rp := range s.points {
		out = append(out, clonePoint(rp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RestorePointStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.points[id]; !ok {
		return &model.NotFoundError{Resource: "restore point", ID: id}
	}
	delete(s.points, id)
	return nil
}

func clonePoint(rp *model.RestorePoint) model.RestorePoint {
	cp := *rp
	cp.Tables = append([]string(nil), rp.Tables...)
	return cp
}
