package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvin/backupd/internal/model"
)

// ScheduleRegistry is an in-memory store.ScheduleRegistry.
type ScheduleRegistry struct {
	mu        sync.Mutex
	schedules map[string]*model.BackupSchedule
}

func NewScheduleRegistry() *ScheduleRegistry {
	return &ScheduleRegistry{schedules: make(map[string]*model.BackupSchedule)}
}

func (r *ScheduleRegistry) Create(_ context.Context, sched *model.BackupSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schedules[sched.ID]; exists {
		return fmt.Errorf("schedule %s already exists", sched.ID)
	}
	cp := cloneSchedule(sched)
	r.schedules[sched.ID] = &cp
	return nil
}

func (r *ScheduleRegistry) Get(_ context.Context, id string) (*model.BackupSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sched, ok := r.schedules[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "schedule", ID: id}
	}
	cp := cloneSchedule(sched)
	return &cp, nil
}

func (r *ScheduleRegistry) List(_ context.Context) ([]model.BackupSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.BackupSchedule, 0, len(r.schedules))
	for _, sched := range r.schedules {
		out = append(out, cloneSchedule(sched))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ScheduleRegistry) Update(_ context.Context, sched *model.BackupSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.schedules[sched.ID]
	if !ok {
		return &model.NotFoundError{Resource: "schedule", ID: sched.ID}
	}
	cp := cloneSchedule(sched)
	// The run cursor belongs to MarkRun/SetNextRun; keep the stored
	// values so a stale caller copy cannot roll it back.
	cp.LastRun = cur.LastRun
	cp.NextRun = cur.NextRun
	r.schedules[sched.ID] = &cp
	return nil
}

func (r *ScheduleRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	delete(r.schedules, id)
	return nil
}

func (r *ScheduleRegistry) MarkRun(_ context.Context, id string, lastRun, nextRun time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sched, ok := r.schedules[id]
	if !ok {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	last := lastRun
	sched.LastRun = &last
	sched.NextRun = nextRun
	sched.UpdatedAt = lastRun
	return nil
}

func (r *ScheduleRegistry) SetNextRun(_ context.Context, id string, nextRun time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sched, ok := r.schedules[id]
	if !ok {
		return &model.NotFoundError{Resource: "schedule", ID: id}
	}
	sched.NextRun = nextRun
	return nil
}

func cloneSchedule(sched *model.BackupSchedule) model.BackupSchedule {
	cp := *sched
	if sched.LastRun != nil {
		last := *sched.LastRun
		cp.LastRun = &last
	}
	return cp
}
