package backup

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/magnetodb/magneto/types"
)

// MemoryRepository keeps backups in process memory
type MemoryRepository struct {
	mu      sync.RWMutex
	backups map[string]map[uuid.UUID]types.BackupMeta
}

// NewMemoryRepository creates an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{backups: map[string]map[uuid.UUID]types.BackupMeta{}}
}

// Save stores a new backup. Backup names are unique per table.
func (r *MemoryRepository) Save(ctx context.Context, meta types.BackupMeta) (types.BackupMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.backups[meta.TableName]
	if table == nil {
		table = map[uuid.UUID]types.BackupMeta{}
		r.backups[meta.TableName] = table
	}

	if _, ok := table[meta.ID]; ok {
		return types.BackupMeta{}, types.NewResourceInUseError("backup %s already exists", meta.ID)
	}

	for _, existing := range table {
		if existing.Name == meta.Name {
			return types.BackupMeta{}, types.NewResourceInUseError("backup %s of table %s already exists", meta.Name, meta.TableName)
		}
	}

	table[meta.ID] = meta

	return meta, nil
}

// Get returns one backup
func (r *MemoryRepository) Get(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.backups[tableName][id]
	if !ok {
		return types.BackupMeta{}, types.NewResourceNotFoundError("backup %s of table %s not found", id, tableName)
	}

	return meta, nil
}

// Delete removes one backup and returns it in DELETED status
func (r *MemoryRepository) Delete(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.backups[tableName][id]
	if !ok {
		return types.BackupMeta{}, types.NewResourceNotFoundError("backup %s of table %s not found", id, tableName)
	}

	delete(r.backups[tableName], id)

	meta.Status = types.BackupStatusDeleted

	return meta, nil
}

// List returns backups ordered by start time, then id
func (r *MemoryRepository) List(ctx context.Context, tableName string, exclusiveStartID uuid.UUID, limit int) ([]types.BackupMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]types.BackupMeta, 0, len(r.backups[tableName]))

	for _, meta := range r.backups[tableName] {
		all = append(all, meta)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartDateTime.Equal(all[j].StartDateTime) {
			return all[i].StartDateTime.Before(all[j].StartDateTime)
		}

		return all[i].ID.String() < all[j].ID.String()
	})

	start := 0

	if exclusiveStartID != uuid.Nil {
		start = len(all)

		for i, meta := range all {
			if meta.ID == exclusiveStartID {
				start = i + 1
				break
			}
		}
	}

	page := all[start:]

	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}

	return page, nil
}
