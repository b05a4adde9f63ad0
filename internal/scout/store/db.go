package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/gartstein/scout/internal/scout/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// snapshotRow is one full dataset version. The latest row is the current
// state; older rows form the change history.
type snapshotRow struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"size:36;uniqueIndex"`
	Body      []byte
	Message   string `gorm:"size:500"`
	CreatedAt time.Time
}

func (snapshotRow) TableName() string {
	return "snapshots"
}

// DBStore persists dataset versions in a relational database. Each Save
// appends a new snapshot row guarded by the previous row's token.
type DBStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// DBConfig selects the driver and DSN.
type DBConfig struct {
	Driver string
	DSN    string
}

func NewDBStore(cfg *DBConfig, logger *zap.Logger) (*DBStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown db driver %q", e.ErrConfiguration, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", e.ErrStoreUnavailable, err)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DBStore{db: db, logger: logger.Named("db_store")}, nil
}

func (s *DBStore) Load(ctx context.Context) (*Snapshot, error) {
	var row snapshotRow
	result := s.db.WithContext(ctx).Order("id DESC").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &Snapshot{Companies: models.Collection{}}, nil
		}
		return nil, fmt.Errorf("%w: load snapshot: %v", e.ErrStoreUnavailable, result.Error)
	}
	var companies models.Collection
	if err := json.Unmarshal(row.Body, &companies); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %s: %v", e.ErrStoreUnavailable, row.Token, err)
	}
	return &Snapshot{Companies: companies, Token: row.Token}, nil
}

func (s *DBStore) Save(ctx context.Context, snap *Snapshot, message string) (string, error) {
	body, err := json.Marshal(snap.Companies)
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	token := uuid.New().String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest snapshotRow
		result := tx.Order("id DESC").First(&latest)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			if snap.Token != "" {
				return fmt.Errorf("%w: store emptied since load", e.ErrConflict)
			}
		case result.Error != nil:
			return result.Error
		case latest.Token != snap.Token:
			return fmt.Errorf("%w: latest token %s, snapshot token %s",
				e.ErrConflict, abbrev(latest.Token), abbrev(snap.Token))
		}
		return tx.Create(&snapshotRow{Token: token, Body: body, Message: message}).Error
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("snapshot saved",
		zap.String("token", abbrev(token)),
		zap.Int("companies", len(snap.Companies)),
		zap.String("message", message),
	)
	snap.Token = token
	return token, nil
}

func (s *DBStore) History(ctx context.Context, limit int) ([]Change, error) {
	var rows []snapshotRow
	q := s.db.WithContext(ctx).
		Select("token", "message", "created_at").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	changes := make([]Change, 0, len(rows))
	for _, r := range rows {
		changes = append(changes, Change{Token: r.Token, Message: r.Message, Timestamp: r.CreatedAt})
	}
	return changes, nil
}

func (s *DBStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
