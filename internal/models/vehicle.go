package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VehicleType distinguishes cars from motorcycles.
type VehicleType int

const (
	// VehicleCar is a passenger car.
	VehicleCar VehicleType = iota + 1
	// VehicleMotorcycle is a motorcycle or scooter.
	VehicleMotorcycle
)

// DefaultVehicleType is used whenever a stored value cannot be mapped.
const DefaultVehicleType = VehicleCar

var vehicleTypeCodes = map[VehicleType]string{
	VehicleCar:        "car",
	VehicleMotorcycle: "motorcycle",
}

// ParseVehicleType maps a stored or user supplied string to a VehicleType.
// Unknown values yield DefaultVehicleType and false.
func ParseVehicleType(s string) (VehicleType, bool) {
	s = strings.TrimSpace(s)
	for vt, code := range vehicleTypeCodes {
		if strings.EqualFold(s, code) {
			return vt, true
		}
	}
	return DefaultVehicleType, false
}

func (vt VehicleType) String() string {
	if code, ok := vehicleTypeCodes[vt]; ok {
		return code
	}
	return vehicleTypeCodes[DefaultVehicleType]
}

// MarshalText implements encoding.TextMarshaler.
func (vt VehicleType) MarshalText() ([]byte, error) {
	return []byte(vt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (vt *VehicleType) UnmarshalText(text []byte) error {
	parsed, ok := ParseVehicleType(string(text))
	if !ok {
		return fmt.Errorf("unknown vehicle type %q", string(text))
	}
	*vt = parsed
	return nil
}

// Value implements driver.Valuer.
func (vt VehicleType) Value() (driver.Value, error) {
	return vt.String(), nil
}

// Scan implements sql.Scanner with the same fallback rules as FuelType.
func (vt *VehicleType) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*vt = DefaultVehicleType
	case string:
		*vt, _ = ParseVehicleType(v)
	case []byte:
		*vt, _ = ParseVehicleType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into VehicleType", value)
	}
	return nil
}

// Vehicle owns a history of refueling records.
type Vehicle struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Type            VehicleType `json:"type"`
	DefaultFuelType FuelType    `json:"default_fuel_type"`
	CreatedAt       time.Time   `json:"created_at"`
}

// RefuelingRecord is one visit to the pump.
type RefuelingRecord struct {
	ID        uuid.UUID `json:"id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	// Seq is the per-vehicle insertion sequence, used to order records
	// sharing the same Date.
	Seq int64 `json:"seq"`

	Date       time.Time `json:"date"`
	Odometer   float64   `json:"odometer"`    // km
	FuelAmount float64   `json:"fuel_amount"` // litres
	Cost       float64   `json:"cost"`
	FuelType   FuelType  `json:"fuel_type"`

	// Derived fields, owned by economy.Recalculate.
	DrivenDistance     float64 `json:"driven_distance"`     // km until the next refueling
	AverageConsumption float64 `json:"average_consumption"` // km/L
	CostPerDistance    float64 `json:"cost_per_distance"`   // cost per km

	CreatedAt time.Time `json:"created_at"`
}

// ResetDerived zeroes the derived fields.
func (r *RefuelingRecord) ResetDerived() {
	r.DrivenDistance = 0
	r.AverageConsumption = 0
	r.CostPerDistance = 0
}
