package models

// Origin tags where a timeline entry came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// TimelineEntry is the display-ready unit of the history view: a remote catalog record,
// a local upload, or a remote record overlaid with local tracking fields.
type TimelineEntry struct {
	ID                string   `json:"id"`
	Origin            Origin   `json:"origem"`
	Locality          string   `json:"localidade"`
	Classification    string   `json:"classificacao"`
	Region            string   `json:"regiao"`
	RegisteredAt      string   `json:"data_cadastro"`
	PhotoTakenAt      string   `json:"data_foto"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	ImageURL          string   `json:"imagem_url"`
	ProcessedImageURL string   `json:"imagem_processada_url"`
	JobID             *string  `json:"job_id"`
	Progress          int      `json:"progresso"`
	LocalStatus       string   `json:"status_local"`
	StatusMessage     string   `json:"mensagem_status"`
	ResourceID        *string  `json:"resource_id"`
	Title             string   `json:"titulo"`
	Description       string   `json:"descricao"`
	Confidence        *float64 `json:"confianca,omitempty"`
}

// RegionalStats aggregates catalog classifications for the dashboard charts.
type RegionalStats struct {
	Legality LegalityCount `json:"legalidade"`
	Regions  []RegionCount `json:"regioes"`
	Total    int           `json:"total"`
	// LegalRate is the legal share of Total in percent, two decimals.
	LegalRate    float64            `json:"taxa_legalidade"`
	Distribution LegalityPercentage `json:"distribuicao_legalidade"`
}

// LegalityPercentage splits Total into legal and illegal percentages, one decimal.
type LegalityPercentage struct {
	Legal     float64 `json:"legal"`
	Irregular float64 `json:"irregular"`
}

// LegalityCount counts legal and illegal classifications.
type LegalityCount struct {
	Legal   int `json:"legais"`
	Illegal int `json:"ilegais"`
}

// RegionCount is the per-region breakdown.
type RegionCount struct {
	Name    string `json:"nome"`
	Legal   int    `json:"legais"`
	Illegal int    `json:"ilegais"`
	Total   int    `json:"total"`
}
