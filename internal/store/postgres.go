package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type snapshotRow struct {
	Name      string `gorm:"primaryKey"`
	Document  string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string {
	return "lottery_snapshots"
}

// PostgresStore keeps the snapshot in one row of a Postgres table.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and creates the snapshot table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&snapshotRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate snapshot table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Load reads the snapshot row. No row is an empty store.
func (s *PostgresStore) Load(ctx context.Context) (models.Snapshot, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).
		Where("name = ?", snapshotName).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSnapshot(), nil
	}
	if err != nil {
		return models.DefaultSnapshot(), fmt.Errorf("select snapshot: %w", err)
	}
	return models.DecodeSnapshot([]byte(row.Document))
}

// Save upserts the snapshot row.
func (s *PostgresStore) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := models.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	row := snapshotRow{Name: snapshotName, Document: string(data), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
