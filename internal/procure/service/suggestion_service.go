package service

import (
	"context"
	"fmt"
	"math"
	"time"

	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/entity"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	stockRepo "github.com/plumped/InventoryPulse-sub000/internal/stock/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const suggestionLockKey = "pulse:suggestions:lock"

// SuggestionService 补货建议：对比库存与最低库存，扣除在途数量，
// 每次全量重建建议集。
type SuggestionService struct {
	db             *gorm.DB
	suggestionRepo *repository.SuggestionRepository
	orderRepo      *repository.OrderRepository
	products       *masterdataRepo.ProductRepository
	suppliers      *masterdataRepo.SupplierRepository
	stock          *stockRepo.StockRepository
	order          *OrderService
	redis          *redis.Client
	logger         *zap.Logger
}

func NewSuggestionService(deps Deps, order *OrderService) *SuggestionService {
	return &SuggestionService{
		db:             deps.DB,
		suggestionRepo: deps.Repos.Suggestion,
		orderRepo:      deps.Repos.Order,
		products:       deps.Products,
		suppliers:      deps.Suppliers,
		stock:          deps.Stock,
		order:          order,
		redis:          deps.Redis,
		logger:         deps.Logger,
	}
}

// List 查询当前建议集
func (s *SuggestionService) List(ctx context.Context) ([]entity.OrderSuggestion, error) {
	return s.suggestionRepo.FindAll(ctx)
}

// Generate 重新生成补货建议，返回生成条数。
// 配置了Redis时用 SetNX 锁避免并发重复生成。
func (s *SuggestionService) Generate(ctx context.Context) (int, error) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, suggestionLockKey, "1", 5*time.Minute).Result()
		if err != nil {
			s.logger.Warn("Failed to acquire suggestion lock, proceeding without it", zap.Error(err))
		} else if !ok {
			return 0, Guardf("补货建议正在生成中")
		} else {
			defer s.redis.Del(context.Background(), suggestionLockKey)
		}
	}

	products, err := s.products.FindWithMinimumStock(ctx)
	if err != nil {
		return 0, err
	}

	var suggestions []entity.OrderSuggestion
	for i := range products {
		product := &products[i]

		currentStock, err := s.stock.TotalStock(ctx, product.ID)
		if err != nil {
			return 0, err
		}
		if currentStock >= product.MinimumStock {
			continue
		}

		alreadyOrdered, err := s.orderRepo.AlreadyOrdered(ctx, product.ID)
		if err != nil {
			return 0, err
		}
		totalSystem := currentStock + alreadyOrdered
		if totalSystem >= product.MinimumStock {
			// 在途订单已覆盖缺口
			continue
		}

		target := math.Max(product.MinimumStock*1.2, product.MinimumStock*2-currentStock)
		suggested := math.Round(math.Max(target-totalSystem, 0))
		if suggested <= 0 {
			continue
		}

		suggestion := entity.OrderSuggestion{
			ID:                     uuid.New().String()[:32],
			ProductID:              product.ID,
			CurrentStock:           currentStock,
			MinimumStock:           product.MinimumStock,
			SuggestedOrderQuantity: suggested,
		}
		if sp, err := s.suppliers.PreferredSupplierProduct(ctx, product.ID); err == nil {
			supplierID := sp.SupplierID
			suggestion.PreferredSupplierID = &supplierID
		}
		suggestions = append(suggestions, suggestion)
	}

	if err := s.suggestionRepo.Rebuild(ctx, suggestions); err != nil {
		return 0, err
	}
	return len(suggestions), nil
}

type CreateOrdersResult struct {
	CreatedOrders []entity.PurchaseOrder `json:"created_orders"`
	Warnings      []string               `json:"warnings,omitempty"`
}

// CreateOrders 将选中的建议按供应商分组下单。
// 同一供应商已有草稿订单时追加行项，否则创建新草稿。
func (s *SuggestionService) CreateOrders(ctx context.Context, userID string, ids []string) (*CreateOrdersResult, error) {
	if len(ids) == 0 {
		return nil, Guardf("没有选择任何建议")
	}
	suggestions, err := s.suggestionRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &CreateOrdersResult{}
	bySupplier := make(map[string][]entity.OrderSuggestion)
	for _, sg := range suggestions {
		if sg.PreferredSupplierID == nil {
			name := sg.ProductID
			if sg.Product != nil {
				name = sg.Product.SKU
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("产品 %s 没有可用供应商，已跳过", name))
			continue
		}
		bySupplier[*sg.PreferredSupplierID] = append(bySupplier[*sg.PreferredSupplierID], sg)
	}

	var usedIDs []string
	for supplierID, group := range bySupplier {
		order, err := s.orderRepo.FindDraftBySupplier(ctx, supplierID)
		if err != nil {
			if err != repository.ErrNotFound {
				return nil, err
			}
			order, err = s.order.newOrderShell(ctx, supplierID, userID)
			if err != nil {
				return nil, err
			}
			if err := s.orderRepo.Create(ctx, order); err != nil {
				return nil, err
			}
		}

		for _, sg := range group {
			item, err := s.order.buildItem(ctx, order.ID, supplierID, &CreateOrderItemRequest{
				ProductID: sg.ProductID,
				Quantity:  sg.SuggestedOrderQuantity,
			})
			if err != nil {
				result.Warnings = append(result.Warnings, err.Error())
				continue
			}
			if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
				return nil, err
			}
			order.Items = append(order.Items, *item)
			usedIDs = append(usedIDs, sg.ID)
		}

		RecalcTotals(order)
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return nil, err
		}

		full, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		result.CreatedOrders = append(result.CreatedOrders, *full)
	}

	if len(usedIDs) > 0 {
		if err := s.suggestionRepo.Delete(ctx, usedIDs); err != nil {
			return nil, err
		}
	}
	return result, nil
}
