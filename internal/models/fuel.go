package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// FuelType identifies a fuel grade inside the application.
type FuelType int

const (
	// FuelGas92 is 92 octane unleaded gasoline.
	FuelGas92 FuelType = iota + 1
	// FuelGas95 is 95 octane unleaded gasoline.
	FuelGas95
	// FuelGas98 is 98 octane unleaded gasoline.
	FuelGas98
	// FuelDiesel is premium diesel.
	FuelDiesel
)

// DefaultFuelType is used whenever a stored value cannot be mapped.
const DefaultFuelType = FuelGas95

// AllFuelTypes lists every fuel type in display order.
var AllFuelTypes = []FuelType{FuelGas98, FuelGas95, FuelGas92, FuelDiesel}

type fuelTypeForms struct {
	code   string
	stored string
}

var fuelTypeTable = map[FuelType]fuelTypeForms{
	FuelGas92:  {code: "gas92", stored: "92無鉛"},
	FuelGas95:  {code: "gas95", stored: "95無鉛"},
	FuelGas98:  {code: "gas98", stored: "98無鉛"},
	FuelDiesel: {code: "diesel", stored: "柴油"},
}

// ParseFuelType maps either the stored form ("95無鉛") or the code ("gas95")
// back to a FuelType. The second return value is false when s is unknown, in
// which case DefaultFuelType is returned.
func ParseFuelType(s string) (FuelType, bool) {
	s = strings.TrimSpace(s)
	for ft, forms := range fuelTypeTable {
		if s == forms.stored || strings.EqualFold(s, forms.code) {
			return ft, true
		}
	}
	return DefaultFuelType, false
}

// Valid reports whether ft is one of the known fuel types.
func (ft FuelType) Valid() bool {
	_, ok := fuelTypeTable[ft]
	return ok
}

// Code returns the ASCII identifier used in configuration, flags and JSON.
func (ft FuelType) Code() string {
	if forms, ok := fuelTypeTable[ft]; ok {
		return forms.code
	}
	return fuelTypeTable[DefaultFuelType].code
}

// StoredValue returns the string persisted in the database.
func (ft FuelType) StoredValue() string {
	if forms, ok := fuelTypeTable[ft]; ok {
		return forms.stored
	}
	return fuelTypeTable[DefaultFuelType].stored
}

func (ft FuelType) String() string {
	return ft.Code()
}

// MarshalText implements encoding.TextMarshaler.
func (ft FuelType) MarshalText() ([]byte, error) {
	return []byte(ft.Code()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike Scan it rejects
// unknown values, since text input comes from users rather than storage.
func (ft *FuelType) UnmarshalText(text []byte) error {
	parsed, ok := ParseFuelType(string(text))
	if !ok {
		return fmt.Errorf("unknown fuel type %q", string(text))
	}
	*ft = parsed
	return nil
}

// Value implements driver.Valuer.
func (ft FuelType) Value() (driver.Value, error) {
	return ft.StoredValue(), nil
}

// Scan implements sql.Scanner. Unknown stored values fall back to
// DefaultFuelType instead of failing the row.
func (ft *FuelType) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*ft = DefaultFuelType
	case string:
		*ft, _ = ParseFuelType(v)
	case []byte:
		*ft, _ = ParseFuelType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FuelType", value)
	}
	return nil
}
