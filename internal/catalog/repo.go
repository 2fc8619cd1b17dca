package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// RelatedLimit caps related-product lists on detail and cart views.
const RelatedLimit = 20

// Repository persists categories and products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(category).Error
}

// FindProductByID loads a product without associations.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductsByIDs returns the products keyed by id.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// SaveProduct writes every column of an existing product.
func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// DeleteProduct removes the product; the foreign keys delete cart lines and null order lines.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListProducts returns up to size+1 products after cursor, newest first,
// optionally within one category.
func (r *Repository) ListProducts(ctx context.Context, categoryID *uuid.UUID, size int, cursor *pagination.Cursor) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var products []models.Product
	if err := q.Scopes(pagination.Keyset(cursor, size)).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Related returns products other than the excluded ids, limited to categoryID when set.
func (r *Repository) Related(ctx context.Context, categoryID *uuid.UUID, exclude []uuid.UUID, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var products []models.Product
	if err := q.Order("created_at DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Search matches query case-insensitively against name or description.
func (r *Repository) Search(ctx context.Context, query string, categoryID *uuid.UUID, limit int) ([]models.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	q := r.db.WithContext(ctx).
		Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var products []models.Product
	if err := q.Order("created_at DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
