package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"tienda-be/internal/logger"
	"tienda-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, class Class) ([]Product, error)
	Create(ctx context.Context, input NewProductInput, class Class, imageRef *string) (int64, error)
	Delete(ctx context.Context, id int64, class *Class) error
	Replace(ctx context.Context, id int64, input NewProductInput, class Class, imageRef *string) (int64, error)
	ImageRefs(ctx context.Context) ([]string, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, class Class) ([]Product, error) {
	if !class.Valid() {
		return nil, ErrInvalidClass
	}
	return s.repo.List(ctx, class)
}

func (s *service) Create(ctx context.Context, input NewProductInput, class Class, imageRef *string) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
		zap.String("class", string(class)),
	)

	p, err := buildProduct(input, class, imageRef)
	if err != nil {
		log.Debug("rejected product input", zap.Error(err))
		return 0, err
	}

	start := time.Now()
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		log.Error("failed to create product", zap.Error(err))
		return 0, err
	}

	log.Info("product created",
		zap.Int64("product_id", id),
		zap.String("image", utils.PtrString(imageRef)),
		zap.Duration("duration", time.Since(start)),
	)
	return id, nil
}

func (s *service) Delete(ctx context.Context, id int64, class *Class) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteProduct"),
		zap.Int64("product_id", id),
	)

	if id <= 0 {
		return ErrProductNotFound
	}
	if class != nil && !class.Valid() {
		return ErrInvalidClass
	}

	if err := s.repo.Delete(ctx, id, class); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Debug("product not found")
		} else {
			log.Error("failed to delete product", zap.Error(err))
		}
		return err
	}

	// The image blob, if any, stays on disk; see blob.DiskStore.Prune.
	log.Info("product deleted")
	return nil
}

func (s *service) Replace(ctx context.Context, id int64, input NewProductInput, class Class, imageRef *string) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReplaceProduct"),
		zap.Int64("product_id", id),
	)

	if id <= 0 {
		return 0, ErrProductNotFound
	}

	p, err := buildProduct(input, class, imageRef)
	if err != nil {
		return 0, err
	}

	newID, err := s.repo.Replace(ctx, id, p)
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			log.Error("failed to replace product", zap.Error(err))
		}
		return 0, err
	}

	log.Info("product replaced", zap.Int64("new_product_id", newID))
	return newID, nil
}

func (s *service) ImageRefs(ctx context.Context) ([]string, error) {
	return s.repo.ImageRefs(ctx)
}

func buildProduct(input NewProductInput, class Class, imageRef *string) (Product, error) {
	if !class.Valid() {
		return Product{}, ErrInvalidClass
	}

	if err := input.Validate(); err != nil {
		return Product{}, err
	}

	return Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Image:       imageRef,
		Stock:       input.Stock,
		Category:    input.Category,
		Class:       class,
	}, nil
}
