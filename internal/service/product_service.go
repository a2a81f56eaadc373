package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const priceCachePrefix = "price:"

type ProductService interface {
	Create(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, businessID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, businessID, id uuid.UUID) error
	Reactivate(ctx context.Context, businessID, id uuid.UUID) error
	// PriceCheck is the hot path for barcode scanners: redis-cached, short TTL.
	PriceCheck(ctx context.Context, businessID uuid.UUID, barcode string) (*dto.PriceCheckResponse, error)
	UpdateThresholds(ctx context.Context, businessID, productID, locationID uuid.UUID, req dto.UpdateStockLevelRequest) error
}

type productService struct {
	repo          repository.ProductRepository
	categoryRepo  repository.CategoryRepository
	ledger        LedgerService
	subscriptions SubscriptionService
	rdb           *redis.Client
	priceTTL      time.Duration
}

func NewProductService(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	ledger LedgerService,
	subscriptions SubscriptionService,
	rdb *redis.Client,
	priceTTL time.Duration,
) ProductService {
	return &productService{
		repo:          repo,
		categoryRepo:  categoryRepo,
		ledger:        ledger,
		subscriptions: subscriptions,
		rdb:           rdb,
		priceTTL:      priceTTL,
	}
}

// Create registers the product and applies any opening stock through the
// ledger as adjustment movements. Quantities are never written directly.
func (s *productService) Create(ctx context.Context, userID uuid.UUID, businessID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := s.subscriptions.EnsureCanAddProduct(ctx, businessID); err != nil {
		return nil, err
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid category_id", apierror.ErrValidation)
	}
	if _, err := s.categoryRepo.FindByID(ctx, businessID, categoryID); err != nil {
		return nil, storageErr(err)
	}
	if req.RetailPrice.IsNegative() || req.WholesalePrice.IsNegative() || req.CostPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", apierror.ErrValidation)
	}

	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}
	product := &model.Product{
		BusinessID:     businessID,
		CategoryID:     categoryID,
		SKU:            req.SKU,
		Barcode:        req.Barcode,
		Name:           req.Name,
		Description:    req.Description,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		CostPrice:      req.CostPrice,
		Unit:           unit,
		Active:         true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: sku %q already exists", apierror.ErrConflict, req.SKU)
		}
		return nil, storageErr(err)
	}

	for _, entry := range req.OpeningStock {
		locationID, err := uuid.Parse(entry.LocationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location_id in opening stock", apierror.ErrValidation)
		}
		if entry.Quantity > 0 {
			_, err = s.ledger.RecordMovement(ctx, userID, businessID, dto.RecordMovementRequest{
				ProductID:  product.ID.String(),
				LocationID: entry.LocationID,
				Kind:       model.MovementAdjustment,
				Quantity:   entry.Quantity,
				Note:       "opening stock",
			})
			if err != nil {
				return nil, err
			}
		}
		if entry.MinStock > 0 || entry.MaxStock > 0 {
			min, max := entry.MinStock, entry.MaxStock
			if err := s.repo.UpdateLevelThresholds(ctx, product.ID, locationID, &min, &max); err != nil {
				return nil, storageErr(err)
			}
		}
	}

	log.Info().
		Str("product_id", product.ID.String()).
		Str("sku", product.SKU).
		Msg("product created")

	return s.Get(ctx, businessID, product.ID)
}

func (s *productService) Get(ctx context.Context, businessID, id uuid.UUID) (*dto.ProductResponse, error) {
	product, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return productToResponse(product), nil
}

func (s *productService) List(ctx context.Context, businessID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	products, total, err := s.repo.List(ctx, businessID, filter)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{Data: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *productService) Update(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}

	oldBarcode := product.Barcode
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Barcode != nil {
		product.Barcode = *req.Barcode
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid category_id", apierror.ErrValidation)
		}
		if _, err := s.categoryRepo.FindByID(ctx, businessID, categoryID); err != nil {
			return nil, storageErr(err)
		}
		product.CategoryID = categoryID
	}
	if req.RetailPrice != nil {
		if req.RetailPrice.IsNegative() {
			return nil, fmt.Errorf("%w: retail price cannot be negative", apierror.ErrValidation)
		}
		product.RetailPrice = *req.RetailPrice
	}
	if req.WholesalePrice != nil {
		if req.WholesalePrice.IsNegative() {
			return nil, fmt.Errorf("%w: wholesale price cannot be negative", apierror.ErrValidation)
		}
		product.WholesalePrice = *req.WholesalePrice
	}
	if req.CostPrice != nil {
		if req.CostPrice.IsNegative() {
			return nil, fmt.Errorf("%w: cost price cannot be negative", apierror.ErrValidation)
		}
		product.CostPrice = *req.CostPrice
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, storageErr(err)
	}

	// Price or barcode changes make the cached lookup stale.
	s.invalidatePriceCache(ctx, businessID, oldBarcode)
	if product.Barcode != oldBarcode {
		s.invalidatePriceCache(ctx, businessID, product.Barcode)
	}

	return s.Get(ctx, businessID, id)
}

func (s *productService) Deactivate(ctx context.Context, businessID, id uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return storageErr(err)
	}
	if err := s.repo.SoftDelete(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	s.invalidatePriceCache(ctx, businessID, product.Barcode)
	return nil
}

func (s *productService) Reactivate(ctx context.Context, businessID, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	if err := s.repo.Reactivate(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *productService) PriceCheck(ctx context.Context, businessID uuid.UUID, barcode string) (*dto.PriceCheckResponse, error) {
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode required", apierror.ErrValidation)
	}

	cacheKey := priceCacheKey(businessID, barcode)
	if s.rdb != nil {
		if data, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.PriceCheckResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.repo.FindByBarcode(ctx, businessID, barcode)
	if err != nil {
		return nil, storageErr(err)
	}

	resp := &dto.PriceCheckResponse{
		ProductID:   product.ID.String(),
		Name:        product.Name,
		RetailPrice: product.RetailPrice,
		Unit:        product.Unit,
	}
	if s.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, s.priceTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("price cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *productService) UpdateThresholds(ctx context.Context, businessID, productID, locationID uuid.UUID, req dto.UpdateStockLevelRequest) error {
	if _, err := s.repo.FindByID(ctx, businessID, productID); err != nil {
		return storageErr(err)
	}
	if req.MinStock != nil && req.MaxStock != nil && *req.MaxStock > 0 && *req.MinStock > *req.MaxStock {
		return fmt.Errorf("%w: min_stock above max_stock", apierror.ErrValidation)
	}
	return s.repo.UpdateLevelThresholds(ctx, productID, locationID, req.MinStock, req.MaxStock)
}

func priceCacheKey(businessID uuid.UUID, barcode string) string {
	return priceCachePrefix + businessID.String() + ":" + barcode
}

func (s *productService) invalidatePriceCache(ctx context.Context, businessID uuid.UUID, barcode string) {
	if s.rdb == nil || barcode == "" {
		return
	}
	if err := s.rdb.Del(ctx, priceCacheKey(businessID, barcode)).Err(); err != nil {
		log.Warn().Err(err).Str("barcode", barcode).Msg("price cache invalidation failed")
	}
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	resp := &dto.ProductResponse{
		ID:             p.ID.String(),
		SKU:            p.SKU,
		Barcode:        p.Barcode,
		Name:           p.Name,
		Description:    p.Description,
		CategoryID:     p.CategoryID.String(),
		RetailPrice:    p.RetailPrice,
		WholesalePrice: p.WholesalePrice,
		CostPrice:      p.CostPrice,
		Unit:           p.Unit,
		Active:         p.Active,
	}
	if p.Category != nil {
		resp.CategoryName = p.Category.Name
	}
	for _, level := range p.Levels {
		resp.Levels = append(resp.Levels, dto.StockLevelResponse{
			LocationID: level.LocationID.String(),
			Quantity:   level.Quantity,
			MinStock:   level.MinStock,
			MaxStock:   level.MaxStock,
		})
	}
	return resp
}
