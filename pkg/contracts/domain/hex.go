package domain

import "fmt"

// HeatExchangerRecord holds one merged heat-exchanger row. Duty, area and the
// terminal temperatures are pointers so that "not reported" stays
// distinguishable from a true zero load.
type HeatExchangerRecord struct {
	Name   string   `json:"name" db:"name" validate:"required"`
	Kind   string   `json:"kind,omitempty" db:"kind"` // construction type, e.g. "Shell & Tube"
	DutyKW *float64 `json:"duty_kw,omitempty" db:"duty_kw"`
	AreaM2 *float64 `json:"area_m2,omitempty" db:"area_m2"`

	HotStream  string `json:"hot_stream,omitempty" db:"hot_stream"`
	ColdStream string `json:"cold_stream,omitempty" db:"cold_stream"`

	HotInletTempC   *float64 `json:"hot_inlet_temp_c,omitempty" db:"hot_inlet_temp"`
	HotOutletTempC  *float64 `json:"hot_outlet_temp_c,omitempty" db:"hot_outlet_temp"`
	ColdInletTempC  *float64 `json:"cold_inlet_temp_c,omitempty" db:"cold_inlet_temp"`
	ColdOutletTempC *float64 `json:"cold_outlet_temp_c,omitempty" db:"cold_outlet_temp"`

	// InletStreams and OutletStreams are derived one-to-one from the hot and
	// cold stream names. Multi-stream exchanger sides are deliberately not
	// modeled; the lists exist so the schema can grow without migration.
	InletStreams  []string `json:"inlet_streams" db:"inlet_streams"`
	OutletStreams []string `json:"outlet_streams" db:"outlet_streams"`
}

// DeriveStreamLists fills InletStreams and OutletStreams from the hot and
// cold stream names: a non-empty hot stream becomes the single inlet, a
// non-empty cold stream the single outlet, otherwise the list is empty.
func (r *HeatExchangerRecord) DeriveStreamLists() {
	r.InletStreams = []string{}
	r.OutletStreams = []string{}
	if r.HotStream != "" {
		r.InletStreams = append(r.InletStreams, r.HotStream)
	}
	if r.ColdStream != "" {
		r.OutletStreams = append(r.OutletStreams, r.ColdStream)
	}
}

// Validate checks that reported duty and area are non-negative.
func (r *HeatExchangerRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("heat exchanger record has no name")
	}
	if r.DutyKW != nil && *r.DutyKW < 0 {
		return fmt.Errorf("heat exchanger %s: negative duty %.2f kW", r.Name, *r.DutyKW)
	}
	if r.AreaM2 != nil && *r.AreaM2 < 0 {
		return fmt.Errorf("heat exchanger %s: negative area %.2f m2", r.Name, *r.AreaM2)
	}
	return nil
}
