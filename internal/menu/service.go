package menu

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
)

var tracer = otel.Tracer("menu/service")

// Store persists the menu catalog. Finders skip ids that do not exist.
type Store interface {
	SaveProduct(ctx context.Context, product *domain.Product) error
	ListProducts(ctx context.Context) ([]domain.Product, error)
	FindProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	SaveMenuGroup(ctx context.Context, group *domain.MenuGroup) error
	ListMenuGroups(ctx context.Context) ([]domain.MenuGroup, error)
	ExistsGroup(ctx context.Context, id string) (bool, error)
	SaveMenu(ctx context.Context, menu *domain.Menu) error
	ListMenus(ctx context.Context) ([]domain.Menu, error)
	FindMenus(ctx context.Context, ids []string) ([]domain.Menu, error)
	UpdateMenuPrice(ctx context.Context, id string, price int64) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) CreateProduct(ctx context.Context, name string, price int64) (*domain.Product, error) {
	product, err := domain.NewProduct(name, price)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	s.logger.Info("product created", "product_id", product.ID, "price", product.Price)
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) CreateMenuGroup(ctx context.Context, name string) (*domain.MenuGroup, error) {
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	group := &domain.MenuGroup{Name: name}
	if err := s.store.SaveMenuGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("save menu group: %w", err)
	}

	s.logger.Info("menu group created", "menu_group_id", group.ID)
	return group, nil
}

func (s *Service) ListMenuGroups(ctx context.Context) ([]domain.MenuGroup, error) {
	return s.store.ListMenuGroups(ctx)
}

func (s *Service) ExistsGroup(ctx context.Context, groupID string) (bool, error) {
	return s.store.ExistsGroup(ctx, groupID)
}

// CreateMenu registers a menu under an existing menu group. Its price may not exceed what its
// products cost when bought separately.
func (s *Service) CreateMenu(ctx context.Context, name string, price int64, groupID string, products []domain.MenuProduct) (*domain.Menu, error) {
	ctx, span := tracer.Start(ctx, "CreateMenu", trace.WithAttributes(attribute.String("menu_group.id", groupID)))
	defer span.End()

	exists, err := s.store.ExistsGroup(ctx, groupID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("check menu group: %w", err))
	}
	if !exists {
		return nil, s.fail(span, fmt.Errorf("%w: %s", domain.ErrMenuGroupNotFound, groupID))
	}

	known, err := s.store.FindProducts(ctx, productIDs(products))
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("find products: %w", err))
	}

	menu, err := domain.NewMenu(name, price, groupID, products, known)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.store.SaveMenu(ctx, menu); err != nil {
		return nil, s.fail(span, fmt.Errorf("save menu: %w", err))
	}

	span.SetAttributes(attribute.String("menu.id", menu.ID))
	s.logger.Info("menu created", "menu_id", menu.ID, "menu_group_id", groupID, "price", menu.Price)
	return menu, nil
}

func (s *Service) ListMenus(ctx context.Context) ([]domain.Menu, error) {
	return s.store.ListMenus(ctx)
}

// ResolveMenus returns the menus that exist among ids, serving the pos catalog lookups.
func (s *Service) ResolveMenus(ctx context.Context, ids []string) ([]domain.Menu, error) {
	if len(ids) == 0 {
		return []domain.Menu{}, nil
	}
	return s.store.FindMenus(ctx, ids)
}

func (s *Service) UpdateMenuPrice(ctx context.Context, menuID string, price int64) (*domain.Menu, error) {
	ctx, span := tracer.Start(ctx, "UpdateMenuPrice", trace.WithAttributes(attribute.String("menu.id", menuID)))
	defer span.End()

	menus, err := s.store.FindMenus(ctx, []string{menuID})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("find menu: %w", err))
	}
	if len(menus) == 0 {
		return nil, s.fail(span, fmt.Errorf("menu %s: %w", menuID, domain.ErrReferenceNotFound))
	}
	menu := menus[0]

	known, err := s.store.FindProducts(ctx, productIDs(menu.Products))
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("find products: %w", err))
	}
	previous := menu.Price
	if err := menu.ChangePrice(price, known); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.store.UpdateMenuPrice(ctx, menuID, price); err != nil {
		return nil, s.fail(span, fmt.Errorf("update menu price: %w", err))
	}

	s.logger.Info("menu price changed", "menu_id", menuID, "from", previous, "to", price)
	return &menu, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func productIDs(products []domain.MenuProduct) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ProductID)
	}
	return ids
}
