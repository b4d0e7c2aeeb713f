package gateway

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// JobStatus is the canonical status of a remote job.
type JobStatus int

const (
	StatusUnknown JobStatus = iota
	StatusQueued
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// statusSynonyms is the closed vocabulary accepted from the gateway.
// Keys are normalized by normalizeToken.
var statusSynonyms = map[string]JobStatus{
	"queued":     StatusQueued,
	"pending":    StatusQueued,
	"pendente":   StatusQueued,
	"waiting":    StatusQueued,
	"aguardando": StatusQueued,
	"na_fila":    StatusQueued,
	"em_fila":    StatusQueued,
	"submitted":  StatusQueued,
	"received":   StatusQueued,
	"recebido":   StatusQueued,

	"running":          StatusRunning,
	"processing":       StatusRunning,
	"processando":      StatusRunning,
	"in_progress":      StatusRunning,
	"em_processamento": StatusRunning,
	"em_andamento":     StatusRunning,
	"started":          StatusRunning,
	"analyzing":        StatusRunning,
	"analisando":       StatusRunning,

	"succeeded":  StatusSucceeded,
	"success":    StatusSucceeded,
	"sucesso":    StatusSucceeded,
	"completed":  StatusSucceeded,
	"complete":   StatusSucceeded,
	"concluido":  StatusSucceeded,
	"concluído":  StatusSucceeded,
	"done":       StatusSucceeded,
	"finished":   StatusSucceeded,
	"finalizado": StatusSucceeded,
	"analyzed":   StatusSucceeded,
	"analisada":  StatusSucceeded,

	"failed":    StatusFailed,
	"failure":   StatusFailed,
	"error":     StatusFailed,
	"erro":      StatusFailed,
	"falha":     StatusFailed,
	"falhou":    StatusFailed,
	"cancelled": StatusFailed,
	"canceled":  StatusFailed,
}

// ParseStatus maps a gateway status token onto JobStatus. Matching ignores case,
// surrounding space, and treats spaces and hyphens as underscores.
// Tokens outside the known vocabulary map to StatusUnknown.
func ParseStatus(token string) JobStatus {
	if s, ok := statusSynonyms[normalizeToken(token)]; ok {
		return s
	}
	return StatusUnknown
}

func normalizeToken(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(t)
}

// StatusPayload is one decoded answer of the job status endpoint.
type StatusPayload struct {
	Status     JobStatus
	RawStatus  string
	Progress   *int
	Message    string
	ResourceID string
}

// decodeStatus reads {status, progress|progresso, message|mensagem, resource_id}.
// Numbers and numeric strings are both accepted for progress and resource_id.
func decodeStatus(body []byte) (*StatusPayload, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("status body is not JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, malformed("status body is not an object")
	}

	raw := strings.TrimSpace(firstOf(root, "status", "estado").String())
	return &StatusPayload{
		Status:     ParseStatus(raw),
		RawStatus:  raw,
		Progress:   progressValue(firstOf(root, "progress", "progresso")),
		Message:    strings.TrimSpace(firstOf(root, "message", "mensagem").String()),
		ResourceID: strings.TrimSpace(root.Get("resource_id").String()),
	}, nil
}

// firstOf returns the first of keys present with a non-null value.
func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// progressValue converts a number or numeric string to a percentage clamped to 0..100.
func progressValue(v gjson.Result) *int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	p := int(math.Round(f))
	p = max(0, min(p, 100))
	return &p
}

// floatValue reads a number or numeric string; anything else is absent.
func floatValue(v gjson.Result) *float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
