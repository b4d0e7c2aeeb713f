package gateway

import (
	"strconv"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/tidwall/gjson"
)

// Defaults sent for metadata the uploader left empty. The gateway rejects empty fields.
const (
	DefaultRegion      = "Norte"
	DefaultLocality    = "Belém"
	DefaultLatitude    = -1.4558
	DefaultLongitude   = -48.5044
	DefaultDescription = "Imagem enviada para análise"
)

// Image is an uploaded photo held in memory. Data is re-read on every retry.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Metadata describes the photo for the classifier.
type Metadata struct {
	Title        string
	Description  string
	Region       string
	Locality     string
	Latitude     *float64
	Longitude    *float64
	PhotoTakenAt *time.Time
}

// WithDefaults returns a copy with every empty field filled. Locality falls back to the
// region before the default locality; the title falls back to the image name.
func (m Metadata) WithDefaults(imageName string, now time.Time) Metadata {
	out := m
	out.Region = strings.TrimSpace(out.Region)
	out.Locality = strings.TrimSpace(out.Locality)
	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)

	if out.Locality == "" {
		out.Locality = out.Region
	}
	if out.Region == "" {
		out.Region = DefaultRegion
	}
	if out.Locality == "" {
		out.Locality = DefaultLocality
	}
	if out.Latitude == nil {
		lat := DefaultLatitude
		out.Latitude = &lat
	}
	if out.Longitude == nil {
		lon := DefaultLongitude
		out.Longitude = &lon
	}
	if out.PhotoTakenAt == nil {
		ts := now.UTC()
		out.PhotoTakenAt = &ts
	}
	if out.Title == "" {
		out.Title = strings.TrimSpace(imageName)
	}
	if out.Title == "" {
		out.Title = "Embarcação"
	}
	if out.Description == "" {
		out.Description = DefaultDescription
	}
	return out
}

// formFields returns the multipart fields in submission order. Call on a defaulted Metadata.
func (m Metadata) formFields() [][2]string {
	var lat, lon, taken string
	if m.Latitude != nil {
		lat = strconv.FormatFloat(*m.Latitude, 'f', -1, 64)
	}
	if m.Longitude != nil {
		lon = strconv.FormatFloat(*m.Longitude, 'f', -1, 64)
	}
	if m.PhotoTakenAt != nil {
		taken = models.FormatTimestamp(*m.PhotoTakenAt)
	}
	return [][2]string{
		{"regiao", m.Region},
		{"localidade", m.Locality},
		{"latitude", lat},
		{"longitude", lon},
		{"data_foto", taken},
		{"titulo", m.Title},
		{"descricao", m.Description},
	}
}

// Submission is the gateway's acknowledgement of an uploaded image.
type Submission struct {
	JobID     string
	StatusURL string
	ResultURL string
}

// decodeSubmission reads {job_id | id, status_url?, result_url?}. A numeric id is accepted.
func decodeSubmission(body []byte) (*Submission, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("submission body is not JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, malformed("submission body is not an object")
	}

	jobID := strings.TrimSpace(root.Get("job_id").String())
	if jobID == "" {
		jobID = strings.TrimSpace(root.Get("id").String())
	}
	if jobID == "" {
		return nil, ErrMissingJobID
	}
	return &Submission{
		JobID:     jobID,
		StatusURL: strings.TrimSpace(root.Get("status_url").String()),
		ResultURL: strings.TrimSpace(root.Get("result_url").String()),
	}, nil
}

// decodeRecords accepts a list, an object wrapping a list under "embarcacoes", or a single record.
func decodeRecords(body []byte) ([]models.RemoteRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("record body is not JSON")
	}
	root := gjson.ParseBytes(body)

	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		if list := root.Get("embarcacoes"); list.IsArray() {
			items = list.Array()
		} else {
			items = []gjson.Result{root}
		}
	default:
		return nil, malformed("record body is neither an object nor a list")
	}

	records := make([]models.RemoteRecord, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, malformed("record %d is not an object", i)
		}
		records = append(records, recordFrom(item))
	}
	return records, nil
}

func recordFrom(r gjson.Result) models.RemoteRecord {
	str := func(key string) string { return strings.TrimSpace(r.Get(key).String()) }
	return models.RemoteRecord{
		ID:                str("id"),
		Classification:    str("classificacao"),
		Region:            str("regiao"),
		Locality:          str("localidade"),
		Title:             str("titulo"),
		Description:       str("descricao"),
		Latitude:          floatValue(r.Get("latitude")),
		Longitude:         floatValue(r.Get("longitude")),
		RegisteredAt:      str("data_cadastro"),
		PhotoTakenAt:      str("data_foto"),
		ImageURL:          str("imagem_url"),
		ProcessedImageURL: str("imagem_processada_url"),
		Confidence:        floatValue(r.Get("confianca")),
	}
}
