package repository

import (
	"context"
	"errors"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository issues gap-free document numbers. Increment must run inside
// the same transaction that creates the numbered document: the counter row is
// read under FOR UPDATE and written back before the transaction commits.
type CounterRepository interface {
	Increment(ctx context.Context, orgID uuid.UUID, domain string) (int64, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) Increment(ctx context.Context, orgID uuid.UUID, domain string) (int64, error) {
	db := GetDB(ctx, r.db)

	var counter model.SequenceCounter
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND domain = ?", orgID, domain).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = model.SequenceCounter{OrgID: orgID, Domain: domain, LastValue: 0}
		if createErr := db.Create(&counter).Error; createErr != nil {
			return 0, createErr
		}
	} else if err != nil {
		return 0, err
	}

	counter.LastValue++
	if err := db.Model(&model.SequenceCounter{}).
		Where("id = ?", counter.ID).
		Update("last_value", counter.LastValue).Error; err != nil {
		return 0, err
	}

	return counter.LastValue, nil
}
