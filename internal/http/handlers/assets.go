package handlers

import (
	"fmt"
	"io"
	"net/http"

	"server/internal/domain"
)

// 25 MiB, enough for a rendered reel.
const maxAssetSize = 25 << 20

// UploadAsset stores a raw asset (custom background, override thumbnail) and
// returns its public URL.
func (a *App) UploadAsset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAssetSize); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAssetSize))
	if err != nil {
		a.fail(w, err)
		return
	}
	key := r.FormValue("key")
	if key == "" {
		key = "uploads/" + header.Filename
	}

	url, err := a.Files.Upload(r.Context(), key, data)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: %s", domain.ErrValidation, err))
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"url": url})
}
