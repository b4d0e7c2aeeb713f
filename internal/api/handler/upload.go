package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ALEXSANDER2002/aritana/internal/api/response"
	"github.com/ALEXSANDER2002/aritana/internal/gateway"
	"github.com/ALEXSANDER2002/aritana/internal/submission"
	"github.com/ALEXSANDER2002/aritana/pkg/models"
	"github.com/google/uuid"
)

// Multipart bodies may carry the metadata fields on top of the largest accepted image.
const (
	maxUploadBody   = submission.MaxImageSize + 1<<20
	multipartMemory = 12 << 20
)

// imageFields are the accepted names of the file part, in lookup order.
var imageFields = []string{"imagem", "image"}

// Submitter stores an upload and hands it to the gateway.
type Submitter interface {
	Submit(ctx context.Context, up submission.Upload) (*models.JobRecord, error)
}

type uploadView struct {
	ID       uuid.UUID `json:"id"`
	JobID    string    `json:"job_id"`
	Status   string    `json:"status"`
	Progress int       `json:"progresso"`
	Message  string    `json:"mensagem"`
}

func newUploadView(job *models.JobRecord) uploadView {
	v := uploadView{
		ID:       job.ID,
		Status:   job.State.DisplayStatus(),
		Progress: job.Progress,
		Message:  job.StatusMessage,
	}
	if job.JobID != nil {
		v.JobID = *job.JobID
	}
	return v
}

// NewUploadHandler returns POST /api/v1/uploads. The body is multipart/form-data with the
// photo in "imagem" (or "image") and optional titulo, descricao, regiao, localidade,
// latitude, longitude and data_foto fields.
func NewUploadHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidImage,
					"Arquivo muito grande", map[string]string{"field": "imagem"})
				return
			}
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"Envie o formulário como multipart/form-data", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		img, err := readImage(r)
		if err != nil {
			var verr *submission.ValidationError
			if errors.As(err, &verr) {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidImage, verr.Message,
					map[string]string{"field": verr.Field})
				return
			}
			response.Internal(w, r, err)
			return
		}

		meta, err := readMetadata(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}

		job, err := svc.Submit(r.Context(), submission.Upload{Image: img, Metadata: meta})
		var verr *submission.ValidationError
		var serr *submission.SubmitError
		switch {
		case err == nil:
			response.Accepted(w, newUploadView(job))
		case errors.As(err, &verr):
			response.Error(w, http.StatusBadRequest, response.CodeInvalidImage, verr.Message,
				map[string]string{"field": verr.Field})
		case errors.As(err, &serr):
			var details any
			if job != nil {
				details = newUploadView(job)
			}
			response.Error(w, http.StatusBadGateway, response.CodeSubmissionFailed, serr.Message, details)
		default:
			response.Internal(w, r, err)
		}
	}
}

func readImage(r *http.Request) (gateway.Image, error) {
	for _, field := range imageFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return gateway.Image{}, fmt.Errorf("reading %s: %w", field, err)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, submission.MaxImageSize+1))
		if err != nil {
			return gateway.Image{}, fmt.Errorf("reading %s: %w", field, err)
		}
		return gateway.Image{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}
	return gateway.Image{}, &submission.ValidationError{Field: "imagem", Message: "Nenhuma imagem foi selecionada"}
}

func readMetadata(r *http.Request) (gateway.Metadata, error) {
	meta := gateway.Metadata{
		Title:       r.FormValue("titulo"),
		Description: r.FormValue("descricao"),
		Region:      r.FormValue("regiao"),
		Locality:    r.FormValue("localidade"),
	}

	var err error
	if meta.Latitude, err = coordinate(r, "latitude", 90); err != nil {
		return meta, err
	}
	if meta.Longitude, err = coordinate(r, "longitude", 180); err != nil {
		return meta, err
	}
	if raw := strings.TrimSpace(r.FormValue("data_foto")); raw != "" {
		ts, ok := models.ParseTimestamp(raw)
		if !ok {
			return meta, fmt.Errorf("data_foto inválida: %q", raw)
		}
		meta.PhotoTakenAt = &ts
	}
	return meta, nil
}

func coordinate(r *http.Request, field string, limit float64) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || !models.InRange(v, -limit, limit) {
		return nil, fmt.Errorf("%s inválida: %q", field, raw)
	}
	return &v, nil
}
