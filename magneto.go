// Package magneto assembles the storage engine, the DynamoDB compatible
// client and the backup manager from a configuration.
package magneto

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/magnetodb/magneto/backup"
	"github.com/magnetodb/magneto/client"
	"github.com/magnetodb/magneto/config"
	"github.com/magnetodb/magneto/core"
	"github.com/magnetodb/magneto/logger"
	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

// Service holds the wired components of a running instance
type Service struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Engine  *core.Engine
	Client  *client.Client
	Backups *backup.Manager
}

// NewFromFile loads the configuration at path and builds a Service
func NewFromFile(ctx context.Context, path string) (*Service, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return New(ctx, cfg)
}

// New builds a Service. A nil cfg uses config.Default.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.Configure(cfg.Logging)
	engine := core.NewEngine(core.WithLogger(log))

	repo, err := newBackupRepository(ctx, cfg.Backup, log)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Config: cfg,
		Logger: log,
		Engine: engine,
		Client: client.NewClient(engine,
			client.WithLogger(log),
			client.WithBatchGetLimit(cfg.Storage.BatchGetLimit),
			client.WithBatchWriteLimit(cfg.Storage.BatchWriteLimit),
		),
		Backups: backup.NewManager(repo,
			backup.WithLocation(cfg.Backup.Location),
			backup.WithLogger(log),
		),
	}

	log.Info().
		Str("backup_repository", cfg.Backup.Repository).
		Int("batch_get_limit", cfg.Storage.BatchGetLimit).
		Int("batch_write_limit", cfg.Storage.BatchWriteLimit).
		Msg("service ready")

	return svc, nil
}

func newBackupRepository(ctx context.Context, cfg config.Backup, log zerolog.Logger) (backup.Repository, error) {
	if cfg.Repository != config.RepositoryDynamoDB {
		return backup.NewMemoryRepository(), nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, types.NewBackendInteractionError("failed to load aws configuration", err)
	}

	api := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return backup.NewDynamoRepository(api, cfg.TableName, log), nil
}
