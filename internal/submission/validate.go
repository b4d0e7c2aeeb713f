package submission

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Accepted image sizes in bytes.
const (
	MinImageSize = 1 << 10
	MaxImageSize = 10 << 20
)

// declaredTypes are the content types an uploader may claim.
var declaredTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// sniffedTypes are the formats the file content must actually have.
var sniffedTypes = []string{"image/jpeg", "image/png"}

// ValidationError reports an upload the service refuses before contacting the gateway.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validate checks an image's size, declared content type and sniffed format. It returns
// the sniffed content type.
func Validate(name, declaredType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", invalid("imagem", "Nenhuma imagem foi selecionada")
	}
	if len(data) < MinImageSize {
		return "", invalid("imagem", "Arquivo muito pequeno")
	}
	if len(data) > MaxImageSize {
		return "", invalid("imagem", "Arquivo muito grande")
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(declaredType, ";", 2)[0]))
	if declared != "" && declared != "application/octet-stream" && !declaredTypes[declared] {
		return "", invalid("imagem", "Tipo de arquivo não suportado")
	}

	detected := mimetype.Detect(data)
	if !detected.Is(sniffedTypes[0]) && !detected.Is(sniffedTypes[1]) {
		return "", invalid("imagem", fmt.Sprintf("Tipo de arquivo não suportado (%s)", detected.String()))
	}
	if strings.TrimSpace(name) == "" {
		return "", invalid("imagem", "Arquivo sem nome")
	}
	return strings.SplitN(detected.String(), ";", 2)[0], nil
}
