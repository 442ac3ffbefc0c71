package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// BrandRepositoryPG implements domain.BrandRepository on PostgreSQL.
type BrandRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewBrandRepository creates a new brand configuration repository.
func NewBrandRepository(sql infra.SQLExecutor) *BrandRepositoryPG {
	return &BrandRepositoryPG{sql: sql}
}

// GetByID fetches one brand's configuration.
func (r *BrandRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectBrandByID, id)
	b, err := scanBrand(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListActive returns every active brand ordered by id.
func (r *BrandRepositoryPG) ListActive(ctx context.Context) ([]*domain.Brand, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListActiveBrands)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*domain.Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func scanBrand(row scanner) (*domain.Brand, error) {
	var (
		b         domain.Brand
		platforms []string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.SlotOffset, &platforms, &b.CredentialRef, &b.Active); err != nil {
		return nil, err
	}
	b.DefaultPlatforms = platformValues(platforms)
	return &b, nil
}
