package handlers

import "net/http"

func (a *App) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := a.Brands.ListActive(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"brands": brands})
}
