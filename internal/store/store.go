// Package store persists committed layout snapshots and their history in
// Postgres. It is an orchestrator sink; the latest stored snapshot seeds an
// event's orchestrator after a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/table-balancer/internal/logging"
	"github.com/DoyleJ11/table-balancer/internal/orchestrator"
	"github.com/DoyleJ11/table-balancer/internal/seating"
)

// LayoutRecord is one committed version of an event's layout.
type LayoutRecord struct {
	EventID   string `gorm:"primaryKey;size:128"`
	Version   int64  `gorm:"primaryKey"`
	Origin    string `gorm:"size:128"`
	EventType string `gorm:"size:64"`
	Snapshot  []byte `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

// HistoryRecord mirrors one history entry so audits can query it without
// decoding snapshots.
type HistoryRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	EventID     string `gorm:"index;size:128;not null"`
	Kind        string `gorm:"size:32;not null"`
	Actor       string `gorm:"size:128"`
	Reason      string
	Relocations int
	Undone      bool
	UndoOf      string    `gorm:"size:36"`
	At          time.Time `gorm:"index"`
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&LayoutRecord{}, &HistoryRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: logging.OrNop(log)}, nil
}

func (s *Store) Name() string { return "postgres" }

// Publish stores snap. A version already stored is overwritten, which only
// happens when the event reissues it with a new eligible set.
func (s *Store) Publish(ctx context.Context, eventID string, snap orchestrator.Snapshot) error {
	rec, hist, err := toRecords(eventID, snap)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"snapshot"}),
		}).Create(&rec).Error; err != nil {
			return err
		}
		if len(hist) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"undone"}),
		}).Create(&hist).Error
	})
	if err != nil {
		return fmt.Errorf("store version %d of %s: %w", snap.Version, eventID, err)
	}
	s.log.Debug("snapshot stored", zap.String("event_id", eventID), zap.Int64("version", snap.Version))
	return nil
}

// Latest returns the highest stored version for eventID, or nil if there is
// none.
func (s *Store) Latest(ctx context.Context, eventID string) (*orchestrator.Snapshot, error) {
	var rec LayoutRecord
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("version desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", eventID, err)
	}
	return fromRecord(rec)
}

// History lists the stored history entries of eventID, oldest first.
func (s *Store) History(ctx context.Context, eventID string) ([]HistoryRecord, error) {
	var out []HistoryRecord
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("at asc").Find(&out).Error
	return out, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecords(eventID string, snap orchestrator.Snapshot) (LayoutRecord, []HistoryRecord, error) {
	if snap.Layout == nil {
		return LayoutRecord{}, nil, errors.New("snapshot without layout")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return LayoutRecord{}, nil, err
	}
	rec := LayoutRecord{
		EventID:  eventID,
		Version:  snap.Version,
		Origin:   snap.Origin,
		Snapshot: payload,
	}
	if snap.Event != nil {
		rec.EventType = string(snap.Event.Type)
	}
	hist := make([]HistoryRecord, 0, len(snap.Layout.History))
	for _, h := range snap.Layout.History {
		hist = append(hist, historyRecord(eventID, h))
	}
	return rec, hist, nil
}

func historyRecord(eventID string, h seating.RebalanceEvent) HistoryRecord {
	return HistoryRecord{
		ID:          h.ID,
		EventID:     eventID,
		Kind:        string(h.Kind),
		Actor:       h.Actor,
		Reason:      h.Reason,
		Relocations: len(h.Relocations),
		Undone:      h.Undone,
		UndoOf:      h.UndoOf,
		At:          h.At,
	}
}

func fromRecord(rec LayoutRecord) (*orchestrator.Snapshot, error) {
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		return nil, fmt.Errorf("decode version %d of %s: %w", rec.Version, rec.EventID, err)
	}
	return &snap, nil
}
