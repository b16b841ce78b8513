package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/maternal-risk/pkg/risk"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const activeSlot = "active"

// ArtifactRecord is one named blob of a model version.
type ArtifactRecord struct {
	Version   string         `gorm:"primaryKey;column:version;size:64"`
	Name      string         `gorm:"primaryKey;column:name;size:32"`
	Variant   string         `gorm:"column:variant;size:16"`
	Payload   datatypes.JSON `gorm:"column:payload;type:json"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (ArtifactRecord) TableName() string {
	return "model_artifacts"
}

// ActiveModel points at the version the service loads on start.
type ActiveModel struct {
	Slot      string    `gorm:"primaryKey;column:slot;size:16"`
	Version   string    `gorm:"column:version;size:64"`
	Variant   string    `gorm:"column:variant;size:16"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ActiveModel) TableName() string {
	return "model_active"
}

// PostgresStore keeps artifact sets in model_artifacts and the active
// pointer in model_active.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(&ArtifactRecord{}, &ActiveModel{})
}

func (s *PostgresStore) LoadArtifacts(ctx context.Context) (risk.ArtifactSet, error) {
	var active ActiveModel
	err := s.db.WithContext(ctx).First(&active, "slot = ?", activeSlot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return risk.ArtifactSet{}, risk.ErrArtifactsNotFound
	}
	if err != nil {
		return risk.ArtifactSet{}, err
	}

	var records []ArtifactRecord
	if err := s.db.WithContext(ctx).
		Where("version = ?", active.Version).
		Find(&records).Error; err != nil {
		return risk.ArtifactSet{}, err
	}
	return setFromRecords(active, records), nil
}

// SaveArtifacts inserts the three blobs and moves the active pointer in one
// transaction.
func (s *PostgresStore) SaveArtifacts(ctx context.Context, set risk.ArtifactSet) error {
	records, err := recordsFromSet(set)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&records).Error; err != nil {
			return fmt.Errorf("insert artifacts: %w", err)
		}
		active := ActiveModel{
			Slot:      activeSlot,
			Version:   set.Version,
			Variant:   string(set.Variant),
			CreatedAt: set.CreatedAt,
			UpdatedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "variant", "created_at", "updated_at"}),
		}).Create(&active).Error; err != nil {
			return fmt.Errorf("activate %s: %w", set.Version, err)
		}
		return nil
	})
}

// Versions lists stored versions, newest first.
func (s *PostgresStore) Versions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	var versions []string
	err := s.db.WithContext(ctx).
		Model(&ArtifactRecord{}).
		Where("name = ?", risk.ArtifactScaler).
		Order("created_at DESC").
		Limit(limit).
		Pluck("version", &versions).Error
	return versions, err
}

func recordsFromSet(set risk.ArtifactSet) ([]ArtifactRecord, error) {
	if set.Version == "" {
		return nil, fmt.Errorf("artifact set without version: %w", risk.ErrInvalidInput)
	}
	records := make([]ArtifactRecord, 0, len(risk.ArtifactNames))
	for _, name := range risk.ArtifactNames {
		blob, ok := set.Blobs[name]
		if !ok {
			return nil, fmt.Errorf("artifact %s missing from set %s: %w", name, set.Version, risk.ErrArtifactMismatch)
		}
		records = append(records, ArtifactRecord{
			Version:   set.Version,
			Name:      name,
			Variant:   string(set.Variant),
			Payload:   datatypes.JSON(blob),
			CreatedAt: set.CreatedAt,
		})
	}
	return records, nil
}

func setFromRecords(active ActiveModel, records []ArtifactRecord) risk.ArtifactSet {
	set := risk.ArtifactSet{
		Version:   active.Version,
		Variant:   risk.Variant(active.Variant),
		CreatedAt: active.CreatedAt,
		Blobs:     make(map[string][]byte, len(records)),
	}
	for _, r := range records {
		set.Blobs[r.Name] = []byte(r.Payload)
	}
	return set
}
