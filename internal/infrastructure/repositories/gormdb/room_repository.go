package gormdb

import (
	"context"
	"errors"
	"fmt"

	"cinesync/internal/core/domain"
	"cinesync/internal/core/ports"

	"gorm.io/gorm"
)

type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) ports.RoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: room %s", domain.ErrAlreadyExists, room.ID)
		}
		return fmt.Errorf("gorm: create room: %w", err)
	}
	return nil
}

func (r *GormRoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by code %s: %w", code, err)
	}
	return &room, nil
}

// CodeExists counts across active and closed rooms both: codes of closed
// rooms stay burned so a stale invite can never land in a new room.
func (r *GormRoomRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by code %s: %w", code, err)
	}
	return count > 0, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		return fmt.Errorf("gorm: save room %s: %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	var rooms []*domain.Room
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list active rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) ListByHost(ctx context.Context, hostID domain.UserID) ([]*domain.Room, error) {
	var rooms []*domain.Room
	err := r.db.WithContext(ctx).
		Where("host_id = ? AND active = ?", hostID, true).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list rooms by host %s: %w", hostID, err)
	}
	return rooms, nil
}
