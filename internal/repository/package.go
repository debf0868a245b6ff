package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saphire-ai/backend/internal/domain"
)

const packageColumns = `id, name, slug, description, price_kobo, currency,
	credits_amount, bonus_credits, features, is_popular, is_active, display_order`

type PackageRepository struct {
	db *sql.DB
}

func NewPackageRepository(db *sql.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetActiveBySlug(ctx context.Context, slug string) (*domain.CreditPackage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM credit_packages
		WHERE slug = $1 AND is_active`, slug,
	)
	p, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetActiveBySlug: %w", domain.ErrPackageNotFound)
		}
		return nil, fmt.Errorf("GetActiveBySlug: %w", err)
	}
	return p, nil
}

func (r *PackageRepository) ListActive(ctx context.Context) ([]domain.CreditPackage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+packageColumns+` FROM credit_packages
		WHERE is_active ORDER BY display_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	var packages []domain.CreditPackage
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: scan: %w", err)
		}
		packages = append(packages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: rows: %w", err)
	}
	return packages, nil
}

func scanPackage(s scanner) (*domain.CreditPackage, error) {
	var p domain.CreditPackage
	var features []byte

	err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceKobo, &p.Currency,
		&p.CreditsAmount, &p.BonusCredits, &features,
		&p.IsPopular, &p.IsActive, &p.DisplayOrder,
	)
	if err != nil {
		return nil, err
	}

	p.Features = features

	return &p, nil
}
