package shipment

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StatusPending is assigned to deliveries created without a status.
	StatusPending = "Pending"

	exportPrefix   = "EXP"
	deliveryPrefix = "DEL"

	// DateLayout is the layout of delivery and exportation dates.
	DateLayout = time.DateOnly
)

// Exportation is a shipment of product to a customer abroad.
type Exportation struct {
	ID              int64   `db:"-" json:"id"`
	ExportationID   string  `db:"exportation_id" json:"exportationId" validate:"required,max=50"`
	ProductType     string  `db:"product_type" json:"productType" validate:"required,max=100"`
	Amount          float64 `db:"amount" json:"amount" validate:"gte=0"`
	Destination     string  `db:"destination" json:"destination" validate:"required,max=100"`
	ExportationDate string  `db:"exportation_date" json:"exportationDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	UnitPrice       float64 `db:"unit_price" json:"unitPrice" validate:"gte=0"`
	Currency        string  `db:"currency" json:"currency,omitempty" validate:"omitempty,len=3"`
	HasDelivery     bool    `db:"has_delivery" json:"hasDelivery"`
	Status          string  `db:"status" json:"status,omitempty" validate:"max=50"`
	Notes           string  `db:"notes" json:"notes,omitempty"`
	CustomerName    string  `db:"customer_name" json:"customerName,omitempty" validate:"max=100"`
	CustomerEmail   string  `db:"customer_email" json:"customerEmail,omitempty" validate:"omitempty,email,max=100"`
}

// ToRow returns the column values in the order of the db tags.
func (e *Exportation) ToRow() []any {
	return []any{
		e.ExportationID,
		e.ProductType,
		e.Amount,
		e.Destination,
		e.ExportationDate,
		e.UnitPrice,
		e.Currency,
		e.HasDelivery,
		e.Status,
		e.Notes,
		e.CustomerName,
		e.CustomerEmail,
	}
}

// Delivery is the transport leg of an exportation.
//
// ExportationID is stored without the "EXP" display prefix.
type Delivery struct {
	ID               int64   `db:"-" json:"id"`
	ExportationID    string  `db:"exportation_id" json:"exportationId" validate:"required,max=50"`
	CarrierName      string  `db:"carrier_name" json:"carrierName,omitempty" validate:"max=100"`
	TrackingNumber   string  `db:"tracking_number" json:"trackingNumber,omitempty" validate:"max=100"`
	DeliveryAddress  string  `db:"delivery_address" json:"deliveryAddress,omitempty"`
	DeliveryDate     string  `db:"delivery_date" json:"deliveryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status           string  `db:"status" json:"status,omitempty" validate:"max=50"`
	Notes            string  `db:"notes" json:"notes,omitempty"`
	ShippingMethod   string  `db:"shipping_method" json:"shippingMethod,omitempty" validate:"max=50"`
	ShippingCost     float64 `db:"shipping_cost" json:"shippingCost" validate:"gte=0"`
	ShippingCurrency string  `db:"shipping_currency" json:"shippingCurrency,omitempty" validate:"omitempty,len=3"`
}

// ToRow returns the column values in the order of the db tags.
func (d *Delivery) ToRow() []any {
	return []any{
		d.ExportationID,
		d.CarrierName,
		d.TrackingNumber,
		d.DeliveryAddress,
		d.DeliveryDate,
		d.Status,
		d.Notes,
		d.ShippingMethod,
		d.ShippingCost,
		d.ShippingCurrency,
	}
}

// DeliveryCode is the display code of the delivery, e.g. DEL007.
func (d *Delivery) DeliveryCode() string {
	return DeliveryCode(d.ID)
}

// DisplayExportID is the exportation id as shown to users, e.g. EXP1042.
func (d *Delivery) DisplayExportID() string {
	if d.ExportationID == "" {
		return ""
	}

	return exportPrefix + d.ExportationID
}

// DeliveryCode formats a delivery id as its display code.
func DeliveryCode(id int64) string {
	return fmt.Sprintf("%s%03d", deliveryPrefix, id)
}

// NormalizeExportID strips the "EXP" display prefix.
func NormalizeExportID(exportID string) string {
	trimmed := strings.TrimSpace(exportID)

	return strings.TrimPrefix(trimmed, exportPrefix)
}

// normalize fills the defaults applied before a delivery is written.
func (d *Delivery) normalize() {
	d.ExportationID = NormalizeExportID(d.ExportationID)

	if strings.TrimSpace(d.Status) == "" {
		d.Status = StatusPending
	}

	if d.ShippingCurrency == "" {
		d.ShippingCurrency = "USD"
	}
}
