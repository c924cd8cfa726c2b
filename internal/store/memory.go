package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rendis/nodeforge/pkg/schema"
)

// MemoryStore is an in-process Store. Nothing survives Close.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*DocumentRecord
	assets map[string]*AssetRecord
	jobs   map[string]*ScheduledJob
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]*DocumentRecord),
		assets: make(map[string]*AssetRecord),
		jobs:   make(map[string]*ScheduledJob),
	}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }

func (m *MemoryStore) PutDocument(_ context.Context, doc *DocumentRecord) error {
	if doc.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "document name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(doc.Name)
	now := time.Now().UTC()
	doc.Revision = 1
	doc.CreatedAt = timeOrNow(doc.CreatedAt)
	if prev, ok := m.docs[key]; ok {
		doc.Revision = prev.Revision + 1
		doc.CreatedAt = prev.CreatedAt
	}
	doc.UpdatedAt = now
	cp := *doc
	cp.Body = append([]byte(nil), doc.Body...)
	m.docs[key] = &cp
	return nil
}

func (m *MemoryStore) GetDocument(_ context.Context, name string) (*DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[strings.ToLower(name)]
	if !ok {
		return nil, storeNotFound("document", name)
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListDocuments(context.Context) ([]*DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*DocumentRecord, 0, len(m.docs))
	for _, d := range m.docs {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *MemoryStore) DeleteDocument(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := m.docs[key]; !ok {
		return storeNotFound("document", name)
	}
	delete(m.docs, key)
	return nil
}

func (m *MemoryStore) UpsertAsset(_ context.Context, asset *AssetRecord) error {
	if asset.Path == "" {
		return schema.NewError(schema.ErrCodeValidation, "asset path is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *asset
	cp.UpdatedAt = timeOrNow(cp.UpdatedAt)
	m.assets[asset.Path] = &cp
	return nil
}

func (m *MemoryStore) GetAsset(_ context.Context, path string) (*AssetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[path]
	if !ok {
		return nil, storeNotFound("asset", path)
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListAssets(_ context.Context, filter AssetFilter) ([]*AssetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AssetRecord
	for _, a := range m.assets {
		if filter.Class != "" && a.Class != filter.Class {
			continue
		}
		if len(filter.PathPrefixes) > 0 && !hasAnyPrefix(a.Path, filter.PathPrefixes) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteAsset(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[path]; !ok {
		return storeNotFound("asset", path)
	}
	delete(m.assets, path)
	return nil
}

func (m *MemoryStore) CreateScheduledJob(_ context.Context, job *ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return schema.NewErrorf(schema.ErrCodeConflict, "scheduled job %q already exists", job.ID)
	}
	cp := *job
	cp.CreatedAt = timeOrNow(cp.CreatedAt)
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) GetScheduledJob(_ context.Context, id string) (*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, storeNotFound("scheduled job", id)
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) UpdateScheduledJob(_ context.Context, id string, update ScheduledJobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return storeNotFound("scheduled job", id)
	}
	if update.Enabled != nil {
		j.Enabled = *update.Enabled
	}
	if update.CronExpression != "" {
		j.CronExpression = update.CronExpression
	}
	if update.LastRunAt != nil {
		t := *update.LastRunAt
		j.LastRunAt = &t
	}
	if update.NextRunAt != nil {
		t := *update.NextRunAt
		j.NextRunAt = &t
	}
	if update.LastRunStatus != "" {
		j.LastRunStatus = update.LastRunStatus
	}
	return nil
}

func (m *MemoryStore) ListScheduledJobs(_ context.Context, filter ScheduledJobFilter) ([]*ScheduledJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ScheduledJob
	for _, j := range m.jobs {
		if filter.Enabled != nil && j.Enabled != *filter.Enabled {
			continue
		}
		if filter.Task != "" && j.Task != filter.Task {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteScheduledJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return storeNotFound("scheduled job", id)
	}
	delete(m.jobs, id)
	return nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
