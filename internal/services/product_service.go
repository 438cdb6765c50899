package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// ProductService manages the catalog.
type ProductService struct {
	db       *gorm.DB
	uploader ImageUploader
}

// NewProductService constructs a ProductService. uploader may be nil.
func NewProductService(db *gorm.DB, uploader ImageUploader) *ProductService {
	return &ProductService{db: db, uploader: uploader}
}

// ProductFilter narrows List. Zero values are ignored; a zero Page means
// the first page of the default size.
type ProductFilter struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     utils.Pagination
}

// ProductInput is the create payload.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"max=120"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// ProductUpdate carries the fields to change; nil fields are kept.
type ProductUpdate struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Category    *string          `json:"category" validate:"omitempty,max=120"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

// ImportRowError reports a spreadsheet row that was skipped.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Created int              `json:"created"`
	Errors  []ImportRowError `json:"errors"`
}

// List returns a page of products with live discounts applied.
func (s *ProductService) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Product{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		q := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", q, q)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := utils.NewPagination(filter.Page.Page, filter.Page.Limit)
	var products []models.Product
	if err := query.
		Limit(page.Limit).Offset(page.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	if err := decorate(db, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Get loads one product with its live discount.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "product")
	}

	products := []models.Product{product}
	if err := decorate(db, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// Create adds a product.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (product *models.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.Create")
	defer endSpan(span, &err)

	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, validationf("price must not be negative")
	}

	image, err := storeImage(ctx, s.uploader, in.Image)
	if err != nil {
		return nil, err
	}

	created := models.Product{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price.Round(2),
		Image:       image,
		Stock:       in.Stock,
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, created.ID)
}

// Update applies a partial change.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in ProductUpdate) (product *models.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService.Update")
	defer endSpan(span, &err)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validationf("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		updates["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, validationf("price must not be negative")
		}
		updates["price"] = in.Price.Round(2)
	}
	if in.Stock != nil {
		updates["stock"] = *in.Stock
	}
	if in.Image != nil {
		image, err := storeImage(ctx, s.uploader, *in.Image)
		if err != nil {
			return nil, err
		}
		updates["image"] = image
	}

	db := s.db.WithContext(ctx)

	var existing models.Product
	if err := db.Select("id").First(&existing, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "product")
	}

	if len(updates) > 0 {
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a product together with its discounts and cart lines.
// Orders keep their snapshot of it.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "ProductService.Delete")
	defer endSpan(span, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("product")
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.ProductDiscount{}).Error; err != nil {
			return err
		}
		return tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error
	})
}

// UpdateStock sets the stock level outright.
func (s *ProductService) UpdateStock(ctx context.Context, id uuid.UUID, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, validationf("stock must not be negative")
	}

	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", stock)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFound("product")
	}

	return s.Get(ctx, id)
}

// Import creates products from the first sheet of an XLSX workbook. The
// header row names the columns: name, description, category, price, stock,
// image (name and price required). Bad rows are reported and skipped.
func (s *ProductService) Import(ctx context.Context, r io.Reader) (result *ImportResult, err error) {
	ctx, span := startSpan(ctx, "ProductService.Import")
	defer endSpan(span, &err)

	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationf("invalid spreadsheet")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, validationf("spreadsheet has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, validationf("spreadsheet is empty")
	}

	index := map[string]int{}
	for i, cell := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	for _, col := range []string{"name", "price"} {
		if _, ok := index[col]; !ok {
			return nil, validationf("missing %s column", col)
		}
	}

	result = &ImportResult{Errors: []ImportRowError{}}
	var products []models.Product

	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(col string) string {
			pos, ok := index[col]
			if !ok || pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}

		if strings.Join(row, "") == "" {
			continue
		}

		product, err := productFromRow(cell)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Error: err.Error()})
			continue
		}
		products = append(products, product)
	}

	if len(products) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(&products, 100).Error; err != nil {
			return nil, err
		}
	}
	result.Created = len(products)

	return result, nil
}

func productFromRow(cell func(string) string) (models.Product, error) {
	name := cell("name")
	if name == "" {
		return models.Product{}, fmt.Errorf("name is required")
	}

	price, err := decimal.NewFromString(cell("price"))
	if err != nil || price.IsNegative() {
		return models.Product{}, fmt.Errorf("invalid price %q", cell("price"))
	}

	stock := 0
	if raw := cell("stock"); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return models.Product{}, fmt.Errorf("invalid stock %q", raw)
		}
	}

	return models.Product{
		Name:        name,
		Description: cell("description"),
		Category:    cell("category"),
		Price:       price.Round(2),
		Image:       cell("image"),
		Stock:       stock,
	}, nil
}
