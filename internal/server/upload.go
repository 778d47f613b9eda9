package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

type upload struct {
	models.Upload
	file multipart.File
}

func (u *upload) Close() {
	if u != nil && u.file != nil {
		_ = u.file.Close()
	}
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFile returns nil when the field is absent or carries no file.
// The caller closes the returned upload.
func formFile(c echo.Context, field string) (*upload, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.InvalidArgument("arquivo inválido: %s", field)
	}
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	return &upload{
		Upload: models.Upload{Filename: header.Filename, Size: header.Size, Content: f},
		file:   f,
	}, nil
}

func (u *upload) model() *models.Upload {
	if u == nil {
		return nil
	}
	return &u.Upload
}
