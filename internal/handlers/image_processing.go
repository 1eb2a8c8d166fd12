package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

var errMissingDimensions = errors.New("image_width and image_height are required unless an image is uploaded")

// uploadedFile is a multipart file read into memory
type uploadedFile struct {
	Filename string
	Data     []byte
}

// readFormFile returns the named file part, or nil when it is absent.
func readFormFile(r *http.Request, field string) (*uploadedFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s contents: %w", field, err)
	}

	return &uploadedFile{Filename: filenameOf(header), Data: data}, nil
}

func filenameOf(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Filename
}

// resolveDimensions prefers explicit form values and falls back to the
// uploaded image's header.
func resolveDimensions(r *http.Request, img *uploadedFile) (int, int, error) {
	ws, hs := r.FormValue("image_width"), r.FormValue("image_height")
	if ws != "" || hs != "" {
		width, err := strconv.Atoi(ws)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid image_width %q", ws)
		}
		height, err := strconv.Atoi(hs)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid image_height %q", hs)
		}
		return width, height, nil
	}

	if img == nil {
		return 0, 0, errMissingDimensions
	}
	return getImageDimensions(img.Data)
}

func getImageDimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

// parseThreshold returns fallback when the field is absent. A present value
// is returned as is and validated by review.Run.
func parseThreshold(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid iou_threshold %q", s)
	}
	return t, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
