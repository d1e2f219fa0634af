package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"consigli/internal/amqp"
	"consigli/internal/log"
	"consigli/internal/storage"
	"consigli/internal/storage/memory"
)

const publisherFlushTimeout = 15 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLBackend(ctx, config, func() (*storage.SQLRepository, error) {
			return storage.NewSQLiteRepository(config.SQLiteDBPath)
		})
	case PostgresBackend:
		result, err = f.createSQLBackend(ctx, config, func() (*storage.SQLRepository, error) {
			return storage.NewPostgresRepository(config.PostgresDSN)
		})
	case MemoryBackend:
		result = f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, config Config, open func() (*storage.SQLRepository, error)) (*BackendResult, error) {
	repo, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", config.Type, err)
	}

	f.logger.InfoContext(ctx, "Initialized SQL backend",
		"type", config.Type,
		"location", storageLocation(config))

	return &BackendResult{
		Backend: &Backend{
			Expenses: repo,
			Advice:   repo.Advice(),
			ping:     repo.Ping,
		},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *BackendResult {
	store := memory.New()

	f.logger.InfoContext(ctx, "Initialized memory backend")

	return &BackendResult{
		Backend: &Backend{
			Expenses: store,
			Advice:   store.Advice(),
		},
	}
}

// attachPublisher connects to AMQP when configured. A broker that cannot be
// reached only disables events; the backend still starts.
func (f *DefaultFactory) attachPublisher(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	// Publishing runs off the request path; callers only enqueue.
	publisher := amqp.NewAsyncPublisher(client, amqp.DefaultPublishBuffer, amqp.DefaultPublishTimeout, f.logger)
	result.Backend.Publisher = publisher
	storageCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		flushCtx, cancel := context.WithTimeout(context.Background(), publisherFlushTimeout)
		defer cancel()
		if err := publisher.Close(flushCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush events: %w", err))
		}
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
		if storageCleanup != nil {
			if err := storageCleanup(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}

// storageLocation names where the data lives without leaking credentials.
func storageLocation(config Config) string {
	switch config.Type {
	case SQLiteBackend:
		return config.SQLiteDBPath
	case PostgresBackend:
		return redactDSN(config.PostgresDSN)
	default:
		return string(config.Type)
	}
}

// redactDSN keeps host and database of a postgres URL or key/value DSN.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return u.Scheme + "://" + u.Host + u.Path
	}
	var kept []string
	for _, field := range strings.Fields(dsn) {
		key, _, _ := strings.Cut(field, "=")
		switch key {
		case "host", "port", "dbname":
			kept = append(kept, field)
		}
	}
	return strings.Join(kept, " ")
}
