package state

import (
	"context"
	"wisecal/internal/reconcile"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ Store     = (*DBStore)(nil)
	_ Calendars = (*DBStore)(nil)
)

type SyncedEvent struct {
	Owner   string `gorm:"primaryKey"`
	EventID string `gorm:"primaryKey"`
}

type CalendarID struct {
	Owner      string `gorm:"primaryKey"`
	CalendarID string `gorm:"not null"`
}

// DBStore keeps sync state in SQL tables through gorm.
type DBStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*DBStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "error connecting database")
	}
	return NewDBStore(db)
}

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&SyncedEvent{}, &CalendarID{}); err != nil {
		return nil, errors.Wrap(err, "error migrating database")
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Load(ctx context.Context, owner string) (reconcile.IDSet, error) {
	var rows []SyncedEvent
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "error loading synced events")
	}
	ids := reconcile.NewIDSet()
	for _, r := range rows {
		ids.Add(r.EventID)
	}
	return ids, nil
}

// Save replaces the owner's rows in a single transaction.
func (s *DBStore) Save(ctx context.Context, owner string, ids reconcile.IDSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&SyncedEvent{}).Error; err != nil {
			return errors.Wrap(err, "error clearing synced events")
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]SyncedEvent, 0, len(ids))
		for _, id := range ids.Sorted() {
			rows = append(rows, SyncedEvent{Owner: owner, EventID: id})
		}
		return errors.Wrap(tx.CreateInBatches(rows, 500).Error, "error saving synced events")
	})
}

func (s *DBStore) Get(ctx context.Context, owner string) (string, bool, error) {
	var rows []CalendarID
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Limit(1).Find(&rows).Error; err != nil {
		return "", false, errors.Wrap(err, "error loading calendar id")
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].CalendarID, true, nil
}

func (s *DBStore) Set(ctx context.Context, owner, calendarID string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}},
		DoUpdates: clause.AssignmentColumns([]string{"calendar_id"}),
	}).Create(&CalendarID{Owner: owner, CalendarID: calendarID}).Error
	return errors.Wrap(err, "error saving calendar id")
}

func (s *DBStore) Clear(ctx context.Context, owner string) error {
	err := s.db.WithContext(ctx).Where("owner = ?", owner).Delete(&CalendarID{}).Error
	return errors.Wrap(err, "error clearing calendar id")
}
