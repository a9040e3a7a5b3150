package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mxn2020/minions-openclaw/pkg/adapter"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/configdoc"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/instance"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/snapshot"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	dataFile          string
	firestoreProject  string
	firestoreDatabase string

	// Events
	natsURL string

	// Gateway
	gatewayTimeout time.Duration

	logLevel string

	closers []func() error
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-file",
			Usage:       "Path of the JSON data file (default ~/.openclaw-manager/data.json)",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_DATA_FILE"),
			Destination: &cfg.dataFile,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID; stores data in Firestore instead of the data file",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "nats-url",
			Usage:       "NATS server URL for change events (disabled when empty)",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_NATS_URL"),
			Destination: &cfg.natsURL,
		},
		&cli.DurationFlag{
			Name:        "gateway-timeout",
			Usage:       "Handshake and call timeout for gateway sessions",
			Value:       gateway.DefaultHandshakeTimeout,
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_GATEWAY_TIMEOUT"),
			Destination: &cfg.gatewayTimeout,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// prepare attaches a logger writing to the error writer of the root command
func (cfg *config) prepare(ctx context.Context, c *cli.Command) context.Context {
	logger := logging.New(cfg.logLevel, errWriter(c))
	return logging.With(ctx, logger)
}

// close releases clients opened by the factory methods
func (cfg *config) close(ctx context.Context) {
	for i := len(cfg.closers) - 1; i >= 0; i-- {
		if err := cfg.closers[i](); err != nil {
			logging.From(ctx).Warn("failed to close client", "error", err)
		}
	}
	cfg.closers = nil
}

// newRepository creates the store selected by the flags
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.firestoreProject != "" {
		if cfg.firestoreDatabase == "" {
			return nil, goerr.New("firestore-database is required")
		}
		repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		cfg.closers = append(cfg.closers, repo.Close)
		return repo, nil
	}

	path := cfg.dataFile
	if path == "" {
		p, err := repository.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return repository.NewFile(path), nil
}

// newPublisher creates the event publisher, a no-op one without NATS URL
func (cfg *config) newPublisher() (adapter.Publisher, error) {
	if cfg.natsURL == "" {
		return &adapter.NoopPublisher{}, nil
	}
	pub, err := adapter.NewNATSPublisher(cfg.natsURL)
	if err != nil {
		return nil, err
	}
	cfg.closers = append(cfg.closers, pub.Close)
	return pub, nil
}

func (cfg *config) sessionOptions() []gateway.Option {
	return []gateway.Option{
		gateway.WithHandshakeTimeout(cfg.gatewayTimeout),
		gateway.WithCallTimeout(cfg.gatewayTimeout),
	}
}

// useCases bundles the use cases sharing one store and publisher
type useCases struct {
	instances *instance.UseCase
	snapshots *snapshot.UseCase
	configs   *configdoc.UseCase
}

func (cfg *config) newUseCases(ctx context.Context) (*useCases, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := cfg.newPublisher()
	if err != nil {
		return nil, err
	}

	inst := instance.New(repo,
		instance.WithPublisher(pub),
		instance.WithSessionOptions(cfg.sessionOptions()...),
	)
	snaps := snapshot.New(repo,
		snapshot.WithConnector(inst),
		snapshot.WithPublisher(pub),
	)
	configs := configdoc.New(repo,
		configdoc.WithSnapshots(snaps),
		configdoc.WithPublisher(pub),
	)
	cfg.closers = append(cfg.closers, func() error {
		inst.DisconnectAll(ctx)
		return nil
	})

	return &useCases{instances: inst, snapshots: snaps, configs: configs}, nil
}

// backupConfig holds the object store selection for backup commands
type backupConfig struct {
	provider string
	bucket   string
	key      string
	region   string
	endpoint string
}

func backupFlags(cfg *backupConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "Object store provider (gcs or s3)",
			Value:       "gcs",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_BACKUP_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Bucket holding backups",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_BACKUP_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "key",
			Usage:       "Object key of the backup",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_BACKUP_KEY"),
			Destination: &cfg.key,
		},
		&cli.StringFlag{
			Name:        "s3-region",
			Usage:       "AWS region for the s3 provider",
			Value:       "us-east-1",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_S3_REGION", "AWS_REGION"),
			Destination: &cfg.region,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Usage:       "Custom S3 endpoint (MinIO and similar)",
			Sources:     cli.EnvVars("OPENCLAW_MANAGER_S3_ENDPOINT"),
			Destination: &cfg.endpoint,
		},
	}
}

// newStorage creates the Storage adapter selected by the provider
func (cfg *backupConfig) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	switch cfg.provider {
	case "gcs":
		return adapter.NewStorage(ctx, cfg.bucket)
	case "s3":
		return adapter.NewS3Storage(ctx, cfg.bucket, cfg.region, cfg.endpoint)
	default:
		return nil, goerr.New("unsupported backup provider",
			goerr.V("provider", cfg.provider), goerr.V("supported", []string{"gcs", "s3"}))
	}
}

func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
