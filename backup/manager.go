// Package backup manages the lifecycle of table backups. Persistence and the
// status transitions after CREATING belong to a Repository.
package backup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

// DefaultLocation is the location recorded on new backups when none is configured
const DefaultLocation = "file:///var/lib/magnetodb/backups"

// Repository stores backup metadata. Implementations return
// BackendInteraction errors when the underlying store fails.
type Repository interface {
	Save(ctx context.Context, meta types.BackupMeta) (types.BackupMeta, error)
	Get(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error)
	Delete(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error)
	// List returns the backups of a table after exclusiveStartID (uuid.Nil
	// starts from the beginning), at most limit of them when limit > 0.
	List(ctx context.Context, tableName string, exclusiveStartID uuid.UUID, limit int) ([]types.BackupMeta, error)
}

// Manager creates, describes, deletes and lists backups
type Manager struct {
	repo     Repository
	location string
	now      func() time.Time
	newID    func() uuid.UUID
	logger   zerolog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLocation sets the location recorded on new backups
func WithLocation(location string) Option {
	return func(m *Manager) {
		m.location = location
	}
}

// WithClock overrides the clock stamping new backups
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides the backup id generator
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// WithLogger sets the manager logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger.With().Str("component", "backup").Logger()
	}
}

// NewManager creates a Manager on top of repo
func NewManager(repo Repository, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		location: DefaultLocation,
		now:      time.Now,
		newID:    uuid.New,
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateBackup registers a new backup of tableName in CREATING status and
// returns what the repository persisted.
func (m *Manager) CreateBackup(ctx context.Context, tableName, name string, strategy map[string]string) (types.BackupMeta, error) {
	if tableName == "" {
		return types.BackupMeta{}, types.NewValidationError("table name is required")
	}

	if name == "" {
		return types.BackupMeta{}, types.NewValidationError("backup name is required")
	}

	meta := types.BackupMeta{
		ID:            m.newID(),
		Name:          name,
		TableName:     tableName,
		Status:        types.BackupStatusCreating,
		Location:      m.location,
		Strategy:      copyStrategy(strategy),
		StartDateTime: m.now(),
	}

	saved, err := m.repo.Save(ctx, meta)
	if err != nil {
		m.logger.Debug().Err(err).Str("table", tableName).Str("backup", name).Msg("backup not saved")

		return types.BackupMeta{}, err
	}

	m.logger.Debug().Str("table", tableName).Str("backup_id", saved.ID.String()).Msg("backup created")

	return saved, nil
}

// DescribeBackup returns a backup of tableName
func (m *Manager) DescribeBackup(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	return m.repo.Get(ctx, tableName, id)
}

// DeleteBackup removes a backup of tableName
func (m *Manager) DeleteBackup(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	return m.repo.Delete(ctx, tableName, id)
}

// ListBackups pages through the backups of tableName. Ordering and cursor
// handling are the repository's.
func (m *Manager) ListBackups(ctx context.Context, tableName string, exclusiveStartID uuid.UUID, limit int) ([]types.BackupMeta, error) {
	return m.repo.List(ctx, tableName, exclusiveStartID, limit)
}

func copyStrategy(strategy map[string]string) map[string]string {
	if strategy == nil {
		return nil
	}

	out := make(map[string]string, len(strategy))

	for k, v := range strategy {
		out[k] = v
	}

	return out
}
