package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadSize = 5 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader stores images under Dir and serves them from BaseURL + "/uploads/".
type Uploader struct {
	Dir     string
	BaseURL string
}

func NewUploader(dir, baseURL string) *Uploader {
	return &Uploader{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Save reads the "file" field, checks it is an image and writes it under a
// random name. It returns the public URL, or a status code and error.
func (u *Uploader) Save(w http.ResponseWriter, r *http.Request, kind string) (string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<10)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", http.StatusRequestEntityTooLarge, fmt.Errorf("file is larger than %d MB", maxUploadSize>>20)
		}
		return "", http.StatusBadRequest, fmt.Errorf("invalid multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return "", http.StatusBadRequest, fmt.Errorf("file field is required")
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", http.StatusBadRequest, fmt.Errorf("failed to read file")
	}
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", http.StatusUnsupportedMediaType, fmt.Errorf("only PNG, JPEG, GIF and WebP images are accepted")
	}

	dir := filepath.Join(u.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Failed to create upload directory", "path", dir, "error", err)
		return "", http.StatusInternalServerError, fmt.Errorf("failed to store file")
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		slog.Error("Failed to create upload file", "path", dir, "error", err)
		return "", http.StatusInternalServerError, fmt.Errorf("failed to store file")
	}
	defer dst.Close()

	_, err = dst.Write(head[:n])
	if err == nil {
		_, err = io.Copy(dst, file)
	}
	if err != nil {
		slog.Error("Failed to write upload", "name", name, "error", err)
		return "", http.StatusInternalServerError, fmt.Errorf("failed to store file")
	}

	slog.Info("File uploaded", "kind", kind, "name", name)
	return u.BaseURL + "/uploads/" + kind + "/" + name, http.StatusCreated, nil
}
