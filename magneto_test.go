package magneto

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/backup"
	"github.com/magnetodb/magneto/client"
	"github.com/magnetodb/magneto/config"
	"github.com/magnetodb/magneto/types"
	"github.com/stretchr/testify/require"
)

func TestNewWithDefaults(t *testing.T) {
	c := require.New(t)
	ctx := context.Background()

	svc, err := New(ctx, nil)
	c.NoError(err)
	c.Equal(config.Default(), svc.Config)
	c.Same(svc.Engine, svc.Client.Engine())

	c.NoError(client.AddTable(ctx, svc.Client, "pokemons", "id", ""))

	out, err := svc.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	c.NoError(err)
	c.Equal([]string{"pokemons"}, out.TableNames)

	meta, err := svc.Backups.CreateBackup(ctx, "pokemons", "daily", nil)
	c.NoError(err)
	c.Equal(backup.DefaultLocation, meta.Location)
}

func TestNewAppliesStorageLimits(t *testing.T) {
	c := require.New(t)
	ctx := context.Background()

	cfg := config.Default()
	cfg.Logging.Enabled = false
	cfg.Storage.BatchWriteLimit = 1

	svc, err := New(ctx, cfg)
	c.NoError(err)
	c.NoError(client.AddTable(ctx, svc.Client, "pokemons", "id", ""))

	_, err = svc.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]ddbtypes.WriteRequest{
			"pokemons": {putRequest("001"), putRequest("002")},
		},
	})
	c.True(types.IsValidation(err))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	c := require.New(t)

	cfg := config.Default()
	cfg.Backup.Repository = config.RepositoryDynamoDB

	_, err := New(context.Background(), cfg)
	c.True(types.IsValidation(err))
}

func TestNewWithDynamoRepository(t *testing.T) {
	c := require.New(t)

	cfg := config.Default()
	cfg.Logging.Enabled = false
	cfg.Backup.Repository = config.RepositoryDynamoDB
	cfg.Backup.TableName = "backups"
	cfg.Backup.Region = "us-east-1"
	cfg.Backup.Endpoint = "http://localhost:8000"
	cfg.Backup.AccessKeyID = "test"
	cfg.Backup.SecretAccessKey = "test"

	svc, err := New(context.Background(), cfg)
	c.NoError(err)
	c.NotNil(svc.Backups)
}

func TestNewFromFile(t *testing.T) {
	c := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "magneto.yaml")

	err := os.WriteFile(path, []byte("logging:\n  enabled: false\nbackup:\n  location: s3://backups\n"), 0o600)
	c.NoError(err)

	svc, err := NewFromFile(context.Background(), path)
	c.NoError(err)
	c.Equal("s3://backups", svc.Config.Backup.Location)

	_, err = NewFromFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	c.Error(err)
}

func putRequest(id string) ddbtypes.WriteRequest {
	return ddbtypes.WriteRequest{
		PutRequest: &ddbtypes.PutRequest{
			Item: map[string]ddbtypes.AttributeValue{"id": &ddbtypes.AttributeValueMemberS{Value: id}},
		},
	}
}
