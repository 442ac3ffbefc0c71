package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/pkg/zip"
)

const archiveFetchTimeout = 60 * time.Second

// DownloadArchive bundles every finished brand's artifacts into one zip.
// Artifacts still referenced by URL are fetched on demand; a brand whose
// fetch fails is skipped rather than failing the whole download.
func (a *App) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}

	client := &http.Client{Timeout: archiveFetchTimeout}
	var assets []zip.Asset
	for brandID, out := range job.BrandOutputs {
		if !out.Status.Succeeded() {
			continue
		}
		for label, url := range artifactURLs(job.Variant, out) {
			data, err := fetchArtifactData(r.Context(), client, url)
			if err != nil {
				a.Logger.Warn().Err(err).Str("job_id", jobID).Str("brand_id", brandID).Msg("archive: artifact fetch failed")
				continue
			}
			assets = append(assets, zip.Asset{
				Filename: brandID + "/" + label + path.Ext(url),
				Data:     data,
			})
		}
	}
	if len(assets) == 0 {
		a.fail(w, fmt.Errorf("%w: job has no downloadable artifacts", domain.ErrValidation))
		return
	}

	archive, err := zip.Archive(assets)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func artifactURLs(variant domain.Variant, out *domain.BrandOutput) map[string]string {
	urls := make(map[string]string)
	if variant.IsReel() {
		if out.VideoURL != "" {
			urls["reel"] = out.VideoURL
		}
	} else if out.BackgroundURL != "" {
		urls["post"] = out.BackgroundURL
	}
	if out.ThumbnailURL != "" {
		urls["thumbnail"] = out.ThumbnailURL
	}
	return urls
}

func fetchArtifactData(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
}
