package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	masterdataRepo "github.com/plumped/InventoryPulse-sub000/internal/masterdata/repository"
	"github.com/plumped/InventoryPulse-sub000/internal/procure/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportService 批量订单导入：CSV/XLSX 按供应商分组生成草稿订单。
// 单行错误只收集不中断。
type ImportService struct {
	db        *gorm.DB
	orderRepo *repository.OrderRepository
	products  *masterdataRepo.ProductRepository
	suppliers *masterdataRepo.SupplierRepository
	order     *OrderService
	logger    *zap.Logger
}

func NewImportService(deps Deps, order *OrderService) *ImportService {
	return &ImportService{
		db:        deps.DB,
		orderRepo: deps.Repos.Order,
		products:  deps.Products,
		suppliers: deps.Suppliers,
		order:     order,
		logger:    deps.Logger,
	}
}

type importRow struct {
	line             int
	supplierName     string
	productSKU       string
	quantity         float64
	notes            string
	expectedDelivery string
	shippingAddress  string
	unitPrice        *float64
	supplierSKU      string
}

type ImportResult struct {
	OrdersCreated int      `json:"orders_created"`
	RowsImported  int      `json:"rows_imported"`
	RowsFailed    int      `json:"rows_failed"`
	OrderNumbers  []string `json:"order_numbers,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ImportOrders 解析并导入批量订单。format 为 csv 或 xlsx。
// 必填列 supplier_name / product_sku / quantity，
// 可选列 notes / expected_delivery / shipping_address / unit_price / supplier_sku。
func (s *ImportService) ImportOrders(ctx context.Context, userID string, r io.Reader, format string) (*ImportResult, error) {
	var records [][]string
	var err error
	switch strings.ToLower(format) {
	case "csv":
		records, err = readCSV(r)
	case "xlsx":
		records, err = readXLSX(r)
	default:
		return nil, Guardf("不支持的导入格式: %s", format)
	}
	if err != nil {
		return nil, Guardf("解析导入文件失败: %v", err)
	}
	if len(records) < 2 {
		return nil, Guardf("导入文件没有数据行")
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"supplier_name", "product_sku", "quantity"} {
		if _, ok := columns[required]; !ok {
			return nil, Guardf("导入文件缺少必填列: %s", required)
		}
	}

	result := &ImportResult{}
	bySupplier := make(map[string][]importRow)
	var supplierOrder []string

	cell := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for i, record := range records[1:] {
		line := i + 2
		row := importRow{
			line:             line,
			supplierName:     cell(record, "supplier_name"),
			productSKU:       cell(record, "product_sku"),
			notes:            cell(record, "notes"),
			expectedDelivery: cell(record, "expected_delivery"),
			shippingAddress:  cell(record, "shipping_address"),
			supplierSKU:      cell(record, "supplier_sku"),
		}
		if row.supplierName == "" || row.productSKU == "" {
			result.RowsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: supplier_name 和 product_sku 不能为空", line))
			continue
		}

		qty, err := strconv.ParseFloat(cell(record, "quantity"), 64)
		if err != nil || qty <= 0 {
			result.RowsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 无效的数量 %q", line, cell(record, "quantity")))
			continue
		}
		row.quantity = qty

		if priceStr := cell(record, "unit_price"); priceStr != "" {
			price, err := strconv.ParseFloat(priceStr, 64)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("第%d行: 无效的单价 %q，改用供应商价格", line, priceStr))
			} else {
				row.unitPrice = &price
			}
		}

		if _, seen := bySupplier[row.supplierName]; !seen {
			supplierOrder = append(supplierOrder, row.supplierName)
		}
		bySupplier[row.supplierName] = append(bySupplier[row.supplierName], row)
	}

	for _, supplierName := range supplierOrder {
		rows := bySupplier[supplierName]
		supplier, err := s.suppliers.FindByName(ctx, supplierName)
		if err != nil {
			result.RowsFailed += len(rows)
			result.Errors = append(result.Errors, fmt.Sprintf("供应商不存在: %s（%d行跳过）", supplierName, len(rows)))
			continue
		}

		order, err := s.order.newOrderShell(ctx, supplier.ID, userID)
		if err != nil {
			return nil, err
		}

		imported := 0
		for _, row := range rows {
			product, err := s.products.FindBySKU(ctx, row.productSKU)
			if err != nil {
				result.RowsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 产品不存在: %s", row.line, row.productSKU))
				continue
			}
			item, err := s.order.buildItem(ctx, order.ID, supplier.ID, &CreateOrderItemRequest{
				ProductID:   product.ID,
				Quantity:    row.quantity,
				UnitPrice:   row.unitPrice,
				SupplierSKU: row.supplierSKU,
			})
			if err != nil {
				result.RowsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", row.line, err))
				continue
			}
			order.Items = append(order.Items, *item)
			imported++

			if row.notes != "" && order.Notes == "" {
				order.Notes = row.notes
			}
			if row.shippingAddress != "" && order.ShippingAddress == "" {
				order.ShippingAddress = row.shippingAddress
			}
			if row.expectedDelivery != "" && order.ExpectedDelivery == nil {
				if t, err := time.Parse("2006-01-02", row.expectedDelivery); err == nil {
					order.ExpectedDelivery = &t
				}
			}
		}

		if imported == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("供应商 %s 没有可导入的行，未创建订单", supplierName))
			continue
		}

		RecalcTotals(order)
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return nil, err
		}
		result.OrdersCreated++
		result.RowsImported += imported
		result.OrderNumbers = append(result.OrderNumbers, order.OrderNumber)
	}

	return result, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}
