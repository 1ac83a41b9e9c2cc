package store

import (
	"context"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
)

// RoomRecord：房间的持久记录（mysql）。
// 删除是软删除：is_active=false，历史可查。
type RoomRecord struct {
	ID              uint64 `gorm:"primaryKey"`
	Name            string `gorm:"size:255;uniqueIndex"`
	LivekitSID      string `gorm:"size:64;column:livekit_sid"`
	MaxParticipants uint32
	EmptyTimeout    uint32
	Metadata        string `gorm:"type:text"`
	IsActive        bool   `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RoomRecord) TableName() string { return "rooms" }

type RoomStore struct {
	db *gorm.DB
}

func InitMySQL(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func NewRoomStore(db *gorm.DB) (*RoomStore, error) {
	if err := db.AutoMigrate(&RoomRecord{}); err != nil {
		return nil, err
	}
	return &RoomStore{db: db}, nil
}

// SaveCreated：upsert。同名房间重建时复用记录并重新激活。
func (s *RoomStore) SaveCreated(ctx context.Context, room shared.Room) error {
	record := RoomRecord{
		Name:            room.Name,
		LivekitSID:      room.SID,
		MaxParticipants: room.MaxParticipants,
		EmptyTimeout:    room.EmptyTimeout,
		Metadata:        room.Metadata,
		IsActive:        true,
	}
	return s.db.WithContext(ctx).
		Where(RoomRecord{Name: room.Name}).
		Assign(record).
		FirstOrCreate(&RoomRecord{}).Error
}

func (s *RoomStore) MarkDeleted(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).
		Model(&RoomRecord{}).
		Where("name = ? AND is_active = ?", name, true).
		Update("is_active", false).Error
}

func (s *RoomStore) ListActive(ctx context.Context) ([]RoomRecord, error) {
	var records []RoomRecord
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at").
		Find(&records).Error
	return records, err
}

func (s *RoomStore) GetByName(ctx context.Context, name string) (*RoomRecord, error) {
	var record RoomRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
