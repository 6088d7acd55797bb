package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Repository is the local development catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database exists once per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Products(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, handle, title, description, category, materials
		FROM products
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	// single connection: release it before the per-product queries
	rows.Close()

	for i := range products {
		if err := r.loadDetails(ctx, &products[i]); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (r *Repository) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	query := `
		SELECT id, handle, title, description, category, materials
		FROM products
		WHERE handle = ?
	`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, handle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadDetails(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p         domain.Product
		materials string
	)
	if err := s.Scan(&p.ID, &p.Handle, &p.Title, &p.Description, &p.Category, &materials); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan product: %w", err)
	}
	if materials != "" {
		p.Materials = strings.Split(materials, ",")
	}
	return p, nil
}

func (r *Repository) loadDetails(ctx context.Context, p *domain.Product) error {
	images, err := r.images(ctx, p.ID)
	if err != nil {
		return err
	}
	variants, err := r.variants(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Images = images
	p.Variants = variants
	p.PriceRange = minVariantPrice(variants)
	return nil
}

func (r *Repository) images(ctx context.Context, productID string) ([]domain.Image, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, alt_text FROM product_images WHERE product_id = ? ORDER BY position`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := []domain.Image{}
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.URL, &img.AltText); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return images, nil
}

func (r *Repository) variants(ctx context.Context, productID string) ([]domain.Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, price, currency_code, available_for_sale
		FROM product_variants
		WHERE product_id = ?
		ORDER BY position`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var (
			v     domain.Variant
			price string
		)
		if err := rows.Scan(&v.ID, &v.Title, &price, &v.Price.CurrencyCode, &v.AvailableForSale); err != nil {
			return nil, fmt.Errorf("failed to scan product variant: %w", err)
		}
		amount, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for variant %s: %w", price, v.ID, err)
		}
		v.Price.Amount = amount
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return variants, nil
}

func minVariantPrice(variants []domain.Variant) domain.Money {
	if len(variants) == 0 {
		return domain.Money{Amount: decimal.Zero}
	}
	minPrice := variants[0].Price
	for _, v := range variants[1:] {
		if v.Price.Amount.LessThan(minPrice.Amount) {
			minPrice = v.Price
		}
	}
	return minPrice
}
