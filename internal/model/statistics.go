package model

import (
	"time"

	"github.com/google/uuid"
)

// VendorSpend ranks a vendor by the value of issued purchase orders
type VendorSpend struct {
	VendorID   uuid.UUID `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	VendorCode string    `json:"vendor_code"`
	OrderCount int       `json:"order_count"`
	TotalValue float64   `json:"total_value"`
}

// MaterialRanking ranks a material by ordered quantity and value
type MaterialRanking struct {
	MaterialID    uuid.UUID `json:"material_id"`
	MaterialName  string    `json:"material_name"`
	MaterialCode  string    `json:"material_code"`
	TotalQuantity float64   `json:"total_quantity"`
	TotalValue    float64   `json:"total_value"`
}

// SpendStatisticsResponse is the procurement dashboard payload
type SpendStatisticsResponse struct {
	TimeRangeStartDate   time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate     time.Time         `json:"time_range_end_date"`
	TotalOrderedValue    float64           `json:"total_ordered_value"`
	IssuedOrderCount     int               `json:"issued_order_count"`
	OpenRequisitionCount int               `json:"open_requisition_count"`
	ExceptionCount       int               `json:"exception_count"`
	TopVendors           []VendorSpend     `json:"top_vendors"`
	TopMaterials         []MaterialRanking `json:"top_materials"`
}
