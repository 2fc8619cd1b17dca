package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// SearchLimit caps search results.
const SearchLimit = 50

// Service exposes catalog browsing and the admin-facing writes used for seeding.
type Service interface {
	Home(ctx context.Context, params pagination.Params) (*HomeResult, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CategoryProducts(ctx context.Context, slug string, params pagination.Params) (*CategoryProductsResult, error)
	ProductDetail(ctx context.Context, slug string) (*ProductDetailResult, error)
	Search(ctx context.Context, input SearchInput) ([]ProductDTO, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

// SearchInput filters Search.
type SearchInput struct {
	Query      string
	CategoryID *uuid.UUID
}

// CategoryInput creates a category. Slug is derived from Name when blank.
type CategoryInput struct {
	Name     string
	Slug     string
	ImageURL *string
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	CategoryID    uuid.UUID
	Name          string
	Slug          string
	Description   string
	Brand         string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	Sizes         []string
	ImageURL      *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	CategoryID    *uuid.UUID
	Name          *string
	Slug          *string
	Description   *string
	Brand         *string
	Price         *decimal.Decimal
	DiscountPrice *decimal.Decimal
	ClearDiscount bool
	Stock         *int
	Sizes         *[]string
	ImageURL      *string
}

type service struct {
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Home(ctx context.Context, params pagination.Params) (*HomeResult, error) {
	page, err := s.productPage(ctx, nil, params)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return &HomeResult{ProductPage: *page, Categories: newCategoryDTOs(categories)}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return newCategoryDTOs(categories), nil
}

func (s *service) CategoryProducts(ctx context.Context, slug string, params pagination.Params) (*CategoryProductsResult, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	page, err := s.productPage(ctx, &category.ID, params)
	if err != nil {
		return nil, err
	}
	return &CategoryProductsResult{Category: NewCategoryDTO(category), ProductPage: *page}, nil
}

func (s *service) ProductDetail(ctx context.Context, slug string) (*ProductDetailResult, error) {
	product, err := s.repo.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	related, err := s.repo.Related(ctx, &product.CategoryID, []uuid.UUID{product.ID}, RelatedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load related products")
	}
	return &ProductDetailResult{
		Product: NewProductDTO(product),
		Related: NewProductDTOs(related),
	}, nil
}

func (s *service) Search(ctx context.Context, input SearchInput) ([]ProductDTO, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return []ProductDTO{}, nil
	}
	products, err := s.repo.Search(ctx, query, input.CategoryID, SearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return NewProductDTOs(products), nil
}

func (s *service) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}
	category := &models.Category{Name: name, Slug: slug, ImageURL: input.ImageURL}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name or slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if _, err := s.repo.FindCategoryByID(ctx, input.CategoryID); err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}

	product := &models.Product{
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Slug:          Slugify(input.Slug),
		Description:   strings.TrimSpace(input.Description),
		Brand:         strings.TrimSpace(input.Brand),
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		Sizes:         pq.StringArray(NormalizeSizes(input.Sizes)),
		ImageURL:      input.ImageURL,
	}
	if err := prepareProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			return nil, notFoundOr(err, "category not found", "load category")
		}
		product.CategoryID = *input.CategoryID
	}
	applyProductUpdate(product, input)
	if err := prepareProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.SaveProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	deleted, err := s.repo.DeleteProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) productPage(ctx context.Context, categoryID *uuid.UUID, params pagination.Params) (*ProductPage, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	size := params.Size()
	products, err := s.repo.ListProducts(ctx, categoryID, size, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	products, next := pagination.Trim(products, size, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &ProductPage{Products: NewProductDTOs(products), NextCursor: next}, nil
}

func applyProductUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		product.Slug = Slugify(*input.Slug)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Brand != nil {
		product.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.ClearDiscount {
		product.DiscountPrice = nil
	} else if input.DiscountPrice != nil {
		discount := *input.DiscountPrice
		product.DiscountPrice = &discount
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Sizes != nil {
		product.Sizes = pq.StringArray(NormalizeSizes(*input.Sizes))
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
}

// prepareProduct fills defaults and enforces the pricing and stock rules.
func prepareProduct(product *models.Product) error {
	if product.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if product.Slug == "" {
		product.Slug = Slugify(product.Name)
	}
	if product.Slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}
	if product.Brand == "" {
		product.Brand = models.DefaultBrand
	}
	if product.Sizes == nil {
		product.Sizes = pq.StringArray{}
	}
	if !product.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if product.DiscountPrice != nil {
		if product.DiscountPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount_price cannot be negative")
		}
		if !product.DiscountPrice.LessThan(product.Price) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount_price must be lower than price")
		}
	}
	if product.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
