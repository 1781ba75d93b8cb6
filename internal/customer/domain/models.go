// Package domain contains customer types shared by pricing, shipping and invoicing.
package domain

import "errors"

// Segment classifies a customer for pricing and service-fee purposes.
type Segment string

const (
	SegmentAcademic          Segment = "academic"
	SegmentBiotechStartup    Segment = "biotech_startup"
	SegmentPharmaEnterprise  Segment = "pharma_enterprise"
	SegmentResearchInstitute Segment = "research_institute"
)

var ErrUnknownSegment = errors.New("unknown_segment")

// Segments lists every valid customer segment.
func Segments() []Segment {
	return []Segment{
		SegmentAcademic,
		SegmentBiotechStartup,
		SegmentPharmaEnterprise,
		SegmentResearchInstitute,
	}
}

// ParseSegment validates a caller-supplied segment value.
func ParseSegment(v string) (Segment, error) {
	s := Segment(v)
	switch s {
	case SegmentAcademic, SegmentBiotechStartup, SegmentPharmaEnterprise, SegmentResearchInstitute:
		return s, nil
	default:
		return "", ErrUnknownSegment
	}
}

// Valid reports whether the segment is one of the enumerated values.
func (s Segment) Valid() bool {
	_, err := ParseSegment(string(s))
	return err == nil
}

type Customer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Segment   Segment `json:"segment"`
	Location  string  `json:"location"`
	Country   string  `json:"country"`
	TaxExempt bool    `json:"tax_exempt"`
}
