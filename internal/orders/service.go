package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snapcaselabs/snapcase/backend/internal/checkout"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries an operation-scoped failure code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

const (
	opServiceNew  = "orders.service.new"
	opCreateOrder = "orders.create_order"
	opListOrders  = "orders.list_orders"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig bundles the dependencies of the order service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service persists accepted orders.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the order service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Create writes one order row from a gate-accepted resolution.
func (s *Service) Create(ctx context.Context, resolution checkout.Resolution) (Order, error) {
	order := Order{
		OrderID:          "order_" + uuid.NewString(),
		VariantID:        resolution.VariantID,
		TemplateID:       resolution.TemplateID,
		TemplateStoreID:  resolution.TemplateStoreID,
		Quantity:         resolution.Quantity,
		UnitPriceCents:   resolution.UnitPriceCents,
		Currency:         resolution.Currency,
		PricingSource:    resolution.PricingSource,
		Email:            resolution.Email,
		CreatedAtSeconds: s.clock().UTC().Unix(),
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		s.logger.Error("order insert failed",
			zap.String("operation", opCreateOrder),
			zap.Int64("variant_id", order.VariantID),
			zap.Error(err))
		return Order{}, newServiceError(opCreateOrder, "insert_failed", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.Int64("variant_id", order.VariantID),
		zap.Int64("unit_price_cents", order.UnitPriceCents),
		zap.String("currency", order.Currency))
	return order, nil
}

// List returns persisted orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.db.WithContext(ctx).Order("created_at_s DESC").Find(&orders).Error; err != nil {
		s.logger.Error("order query failed",
			zap.String("operation", opListOrders),
			zap.Error(err))
		return nil, newServiceError(opListOrders, "query_failed", err)
	}
	return orders, nil
}
