package sql

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	// the SQLite driver is compiled to wasm and embedded.
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/contract"
	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/registry"
	"github.com/deliveryeta/registryops/pkg/registry/sql/model"
)

// Store reads and mutates the model registry tables of an MLflow backend store directly.
type Store struct {
	db *gorm.DB
}

var _ registry.Registry = (*Store)(nil)

//nolint:ireturn
func newDialector(storeURL string) (gorm.Dialector, error) {
	uri, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store url %q: %w", RedactURL(storeURL), err)
	}

	// SQLAlchemy style urls may name a driver, e.g. postgresql+psycopg2.
	dialect, _, _ := strings.Cut(uri.Scheme, "+")

	switch dialect {
	case "postgres", "postgresql":
		uri.Scheme = "postgres"

		return postgres.Open(uri.String()), nil
	case "mysql":
		dsn, err := mysqlDSN(uri)
		if err != nil {
			return nil, err
		}

		return mysql.Open(dsn), nil
	case "mssql":
		return sqlserver.Open(sqlserverDSN(uri)), nil
	case "sqlite":
		// sqlite:///relative.db and sqlite:////absolute.db as understood by MLflow.
		path := strings.TrimPrefix(storeURL, uri.Scheme+":///")
		if path == "" || path == storeURL {
			path = ":memory:"
		}

		return gormlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported store url scheme %q", uri.Scheme)
	}
}

// mysqlDSN translates a store url into a go-sql-driver DSN. The driver
// expects the password unescaped.
func mysqlDSN(uri *url.URL) (string, error) {
	dsn := "tcp(" + uri.Host + ")/" + strings.TrimPrefix(uri.Path, "/")
	if uri.RawQuery != "" {
		dsn += "?" + uri.RawQuery
	}

	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql store url %q: %w", uri.Redacted(), err)
	}

	if uri.User != nil {
		cfg.User = uri.User.Username()
		cfg.Passwd, _ = uri.User.Password()
	}

	return cfg.FormatDSN(), nil
}

// sqlserverDSN turns a SQLAlchemy mssql url into a go-mssqldb url. The url
// path names an instance for go-mssqldb, so the database moves into the query.
func sqlserverDSN(uri *url.URL) string {
	query := uri.Query()
	query.Del("driver")

	if database := strings.Trim(uri.Path, "/"); database != "" && query.Get("database") == "" {
		query.Set("database", database)
	}

	dsn := &url.URL{
		Scheme:   "sqlserver",
		User:     uri.User,
		Host:     uri.Host,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func RedactURL(storeURL string) string {
	uri, err := url.Parse(storeURL)
	if err != nil {
		return "<invalid url>"
	}

	return uri.Redacted()
}

func NewDatabase(logger *logrus.Logger, storeURL string) (*gorm.DB, error) {
	dialector, err := newDialector(storeURL)
	if err != nil {
		return nil, err
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: NewLoggerAdaptor(logger, LoggerAdaptorConfig{
			SlowThreshold:             500 * time.Millisecond,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database %q: %w", registry.ErrUnavailable, RedactURL(storeURL), err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return database, nil
}

func NewSQLStore(logger *logrus.Logger, cfg *config.Config) (*Store, error) {
	database, err := NewDatabase(logger, cfg.StoreURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: database}, nil
}

// storeError keeps contract errors as they are and marks everything else as
// a failure of the backing database.
func storeError(message string, err error) error {
	var cErr *contract.Error
	if errors.As(err, &cErr) {
		return cErr
	}

	return fmt.Errorf("%w: %s: %w", registry.ErrUnavailable, message, err)
}

func (s *Store) GetLatestVersion(
	ctx context.Context, name string, stage entities.Stage,
) (*entities.ModelVersion, error) {
	var version model.ModelVersion

	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Where("LOWER(current_stage) = ?", strings.ToLower(stage.String())).
		Order("version DESC").
		First(&version).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, storeError(fmt.Sprintf("failed to get latest %s version of %q", stage, name), err)
	}

	return version.ToEntity(), nil
}

func getModelVersion(transaction *gorm.DB, name string, version int64) (*model.ModelVersion, error) {
	var modelVersion model.ModelVersion

	err := transaction.
		Where("name = ? AND version = ?", name, version).
		Where("current_stage <> ?", entities.StageDeletedInternal.String()).
		First(&modelVersion).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Model Version (name=%s, version=%d) not found", name, version),
			)
		}

		return nil, fmt.Errorf("failed to get model version: %w", err)
	}

	return &modelVersion, nil
}

func (s *Store) TransitionStage(
	ctx context.Context,
	name string,
	version int64,
	stage entities.Stage,
	archiveExisting bool,
) (*entities.ModelVersion, error) {
	var result *model.ModelVersion

	if err := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		modelVersion, err := getModelVersion(transaction, name, version)
		if err != nil {
			return err
		}

		now := time.Now().UnixMilli()

		if archiveExisting && stage.Archivable() {
			if err := transaction.
				Model(&model.ModelVersion{}).
				Where("name = ? AND version <> ?", name, version).
				Where("LOWER(current_stage) = ?", strings.ToLower(stage.String())).
				Updates(map[string]any{
					"current_stage":     entities.StageArchived.String(),
					"last_updated_time": now,
				}).Error; err != nil {
				return fmt.Errorf("failed to archive existing %s versions: %w", stage, err)
			}
		}

		if err := transaction.
			Model(&model.ModelVersion{}).
			Where("name = ? AND version = ?", name, version).
			Updates(map[string]any{
				"current_stage":     stage.String(),
				"last_updated_time": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update model version stage: %w", err)
		}

		if err := transaction.
			Model(&model.RegisteredModel{}).
			Where("name = ?", name).
			Update("last_updated_time", now).Error; err != nil {
			return fmt.Errorf("failed to update registered model: %w", err)
		}

		modelVersion.CurrentStage = stage.String()
		modelVersion.LastUpdatedTime = now
		result = modelVersion

		return nil
	}); err != nil {
		return nil, storeError(fmt.Sprintf("failed to transition %q version %d to %s", name, version, stage), err)
	}

	return result.ToEntity(), nil
}

func (s *Store) GetDownloadURI(ctx context.Context, name string, version int64) (string, error) {
	modelVersion, err := getModelVersion(s.db.WithContext(ctx), name, version)
	if err != nil {
		return "", storeError("failed to get download uri", err)
	}

	if modelVersion.StorageLocation != "" {
		return modelVersion.StorageLocation, nil
	}

	if modelVersion.Source != "" {
		return modelVersion.Source, nil
	}

	return "", contract.NewError(
		contract.ErrorCodeResourceDoesNotExist,
		fmt.Sprintf("Model Version (name=%s, version=%d) has no storage location", name, version),
	)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
