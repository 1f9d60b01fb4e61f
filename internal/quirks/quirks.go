// Package quirks lists known defects in upstream data and the narrow
// workarounds applied for them. Every entry names concrete station codes or
// wagon types; none of them should be generalized.
package quirks

import "github.com/Chicken/VenaaRauhassa/internal/models"

// StationPair is an ordered pair of station short codes
type StationPair struct {
	From string
	To   string
}

// Policy is the lookup table consulted by the timetable fetcher and the assembler
type Policy struct {
	// LeadingTrims are removed when they are the first two rows of a timetable
	LeadingTrims []StationPair
	// TrailingTrims are removed when they are the last two rows of a timetable
	TrailingTrims []StationPair
	// UnsupportedLegs always fail at the seat-map provider. Their failures are
	// not reported, and when such a leg is last its data is copied from the
	// previous leg.
	UnsupportedLegs []StationPair
	// ReversedWagonTypes flip the wagon order when the first wagon has one of these types
	ReversedWagonTypes []string
}

// Default is the policy for the VR seat-map and digitraffic timetable APIs.
//
//   - TUS-TKU / TKU-TUS: the Turku harbour shuttle leg is listed on some
//     trains but has no seat map.
//   - PSL-HKI: the last leg into Helsinki is sold by HSL, not VR.
//   - IM2, EDO: the seat map lists these sets back to front.
var Default = Policy{
	LeadingTrims:       []StationPair{{From: "TUS", To: "TKU"}},
	TrailingTrims:      []StationPair{{From: "TKU", To: "TUS"}},
	UnsupportedLegs:    []StationPair{{From: "PSL", To: "HKI"}},
	ReversedWagonTypes: []string{"IM2", "EDO"},
}

// TrimEdges removes the leading and trailing station pairs listed in the policy
func (p Policy) TrimEdges(rows []models.TimetableRow) []models.TimetableRow {
	if len(rows) >= 2 {
		for _, pair := range p.LeadingTrims {
			if rows[0].StationShortCode == pair.From && rows[1].StationShortCode == pair.To {
				rows = rows[2:]
				break
			}
		}
	}
	if n := len(rows); n >= 2 {
		for _, pair := range p.TrailingTrims {
			if rows[n-2].StationShortCode == pair.From && rows[n-1].StationShortCode == pair.To {
				rows = rows[:n-2]
				break
			}
		}
	}
	return rows
}

// IsUnsupportedLeg reports whether dep -> arr is a leg the seat-map provider cannot serve
func (p Policy) IsUnsupportedLeg(dep, arr string) bool {
	for _, pair := range p.UnsupportedLegs {
		if pair.From == dep && pair.To == arr {
			return true
		}
	}
	return false
}

// ReverseWagons reports whether a wagon list starting with wagonType is listed back to front
func (p Policy) ReverseWagons(wagonType string) bool {
	for _, t := range p.ReversedWagonTypes {
		if t == wagonType {
			return true
		}
	}
	return false
}
