package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresURLScheme = "pg://"

// blobRow is the table layout for the Postgres backend. Each collection
// document is one row keyed by its pathname.
type blobRow struct {
	Pathname    string         `gorm:"column:pathname;primaryKey;type:varchar(255)"`
	Data        datatypes.JSON `gorm:"column:data;not null"`
	ContentType string         `gorm:"column:content_type;type:varchar(100)"`
	Public      bool           `gorm:"column:public;default:false"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (blobRow) TableName() string {
	return "blobs"
}

// PostgresStore keeps blob documents in a Postgres table through gorm, for
// deployments that already run a database and want the documents inspectable
// with SQL.
type PostgresStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewPostgresStore connects to Postgres and migrates the blobs table. The
// connection is retried a few times so the service can come up alongside the
// database container.
func NewPostgresStore(dsn string, log *zap.SugaredLogger) (*PostgresStore, error) {
	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		log.Infof("database connection attempt %d...", i+1)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			break
		}
		log.Warnf("connection attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&blobRow{}); err != nil {
		return nil, err
	}
	log.Infow("connected to postgres blob store")

	return &PostgresStore{db: db, logger: log}, nil
}

// List enumerates every stored object.
func (s *PostgresStore) List(ctx context.Context) ([]BlobInfo, error) {
	var pathnames []string
	if err := s.db.WithContext(ctx).Model(&blobRow{}).Order("pathname").Pluck("pathname", &pathnames).Error; err != nil {
		return nil, err
	}

	infos := make([]BlobInfo, 0, len(pathnames))
	for _, pathname := range pathnames {
		infos = append(infos, BlobInfo{
			Pathname: pathname,
			URL:      postgresURLScheme + pathname,
		})
	}
	return infos, nil
}

// Fetch reads the object bytes for a URL produced by List.
func (s *PostgresStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	pathname := strings.TrimPrefix(url, postgresURLScheme)

	var row blobRow
	err := s.db.WithContext(ctx).Where("pathname = ?", pathname).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Data), nil
}

// Put overwrites the row at pathname.
func (s *PostgresStore) Put(ctx context.Context, pathname string, data []byte, opts PutOptions) error {
	row := blobRow{
		Pathname:    pathname,
		Data:        datatypes.JSON(data),
		ContentType: opts.ContentType,
		Public:      opts.Public,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
