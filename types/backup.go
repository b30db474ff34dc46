package types

import (
	"time"

	"github.com/google/uuid"
)

// BackupStatus is the lifecycle state of a backup
type BackupStatus string

const (
	// BackupStatusCreating is set when the backup is requested
	BackupStatusCreating BackupStatus = "CREATING"
	// BackupStatusAvailable once the backup data is stored
	BackupStatusAvailable BackupStatus = "AVAILABLE"
	// BackupStatusError when the backup could not be completed
	BackupStatusError BackupStatus = "ERROR"
	// BackupStatusDeleting while the backup data is removed
	BackupStatusDeleting BackupStatus = "DELETING"
	// BackupStatusDeleted once the backup data is gone
	BackupStatusDeleted BackupStatus = "DELETED"
)

// BackupMeta describes a stored backup of a table. Status transitions after
// CREATING belong to the backup repository.
type BackupMeta struct {
	ID            uuid.UUID
	Name          string
	TableName     string
	Status        BackupStatus
	Location      string
	Strategy      map[string]string
	StartDateTime time.Time
}
