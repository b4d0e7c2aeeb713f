package models

import (
	"math"
	"strings"
	"time"
)

// Classification labels assigned by the external classifier.
const (
	ClassificationLegal   = "legal"
	ClassificationIllegal = "ilegal"
)

// RemoteRecord is a finalized classification owned by the external service.
// It is read, never mutated.
type RemoteRecord struct {
	ID                string   `json:"id"`
	Classification    string   `json:"classificacao"`
	Region            string   `json:"regiao"`
	Locality          string   `json:"localidade"`
	Title             string   `json:"titulo,omitempty"`
	Description       string   `json:"descricao,omitempty"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	RegisteredAt      string   `json:"data_cadastro"`
	PhotoTakenAt      string   `json:"data_foto"`
	ImageURL          string   `json:"imagem_url"`
	ProcessedImageURL string   `json:"imagem_processada_url"`
	Confidence        *float64 `json:"confianca,omitempty"`
}

// Classified reports whether the record already carries a classification label.
func (r RemoteRecord) Classified() bool {
	return strings.TrimSpace(r.Classification) != ""
}

// IsLegal reports a case-insensitive "legal" label.
func IsLegal(classification string) bool {
	return strings.EqualFold(classification, ClassificationLegal)
}

// IsIllegal reports a case-insensitive "ilegal" label.
func IsIllegal(classification string) bool {
	return strings.EqualFold(classification, ClassificationIllegal)
}

// InRange reports whether v is a finite number within [lo, hi]. NaN is never in range.
func InRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Finite returns v when it points to a finite number and nil otherwise. encoding/json
// cannot encode NaN or infinities.
func Finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats emitted by the gateway and by this service.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	return ParseTimestampIn(s, time.UTC)
}

// ParseTimestampIn is ParseTimestamp with values that carry no zone read in loc.
// The result is always in UTC.
func ParseTimestampIn(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way timeline entries carry it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
