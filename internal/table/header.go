// Package table assembles CMOR table documents and writes them to disk.
package table

import "time"

// DateLayout formats the table_date header field.
const DateLayout = "2006-01-02 15:04:05"

// Default header values of a CMIP7 table.
const (
	DefaultConventions     = "CF-1.12 CMIP-7.0"
	DefaultCMORVersion     = "3.13"
	DefaultIntMissingValue = "-999"
	DefaultMissingValue    = "1e20"
	DefaultProduct         = "model-output"
	DefaultType            = "real"
)

// Header is the Header object of a table. It is a plain value: overlays
// return a modified copy and never touch the receiver.
type Header struct {
	Conventions     string
	Checksum        string
	CMORVersion     string
	GenericLevels   string
	IntMissingValue string
	MissingValue    string
	OkMaxMeanAbs    string
	OkMinMeanAbs    string
	Positive        string
	Product         string
	Realm           string
	TableDate       string
	TableID         string
	Type            string
	ValidMax        string
	ValidMin        string
}

// DefaultHeader returns the template header stamped with date.
func DefaultHeader(date time.Time) Header {
	return Header{
		Conventions:     DefaultConventions,
		CMORVersion:     DefaultCMORVersion,
		IntMissingValue: DefaultIntMissingValue,
		MissingValue:    DefaultMissingValue,
		Product:         DefaultProduct,
		TableDate:       date.Format(DateLayout),
		Type:            DefaultType,
	}
}

// ForRealm overlays the realm, its generic levels and the table id.
func (h Header) ForRealm(realm string) Header {
	h.Realm = realm
	h.GenericLevels = GenericLevels(realm)
	h.TableID = realm
	return h
}

// ForAncillary overlays the table id of an ancillary file.
func (h Header) ForAncillary(tableID string) Header {
	h.TableID = tableID
	return h
}

// Fields returns the header as a JSON object. checksum is only present once
// the header has been signed.
func (h Header) Fields() map[string]any {
	fields := map[string]any{
		"Conventions":       h.Conventions,
		"cmor_version":      h.CMORVersion,
		"generic_levels":    h.GenericLevels,
		"int_missing_value": h.IntMissingValue,
		"missing_value":     h.MissingValue,
		"ok_max_mean_abs":   h.OkMaxMeanAbs,
		"ok_min_mean_abs":   h.OkMinMeanAbs,
		"positive":          h.Positive,
		"product":           h.Product,
		"realm":             h.Realm,
		"table_date":        h.TableDate,
		"table_id":          h.TableID,
		"type":              h.Type,
		"valid_max":         h.ValidMax,
		"valid_min":         h.ValidMin,
	}
	if h.Checksum != "" {
		fields["checksum"] = h.Checksum
	}
	return fields
}

var genericLevels = map[string]string{
	"aerosol":   "alevel alevhalf",
	"atmos":     "alevel alevhalf",
	"atmosChem": "alevel alevhalf",
	"land":      "",
	"landIce":   "",
	"ocean":     "olevel olevhalf",
	"ocnBgchem": "olevel olevhalf",
	"seaIce":    "olevel olevhalf",
}

// GenericLevels returns the generic vertical axes of a realm. Realms without
// sub-surface levels, and unknown realms, have none.
func GenericLevels(realm string) string {
	return genericLevels[realm]
}
