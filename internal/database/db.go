package database

import (
	"log"

	"procurement/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.SequenceCounter{},
		&model.Vendor{},
		&model.Material{},
		&model.MaterialSource{},
		&model.Requisition{},
		&model.RequisitionLine{},
		&model.RFQ{},
		&model.RFQItem{},
		&model.Quote{},
		&model.QuoteItem{},
		&model.PurchaseOrder{},
		&model.POItem{},
		&model.ProcurementPolicy{},
		&model.ExceptionNotice{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
