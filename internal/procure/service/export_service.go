package service

import (
	"context"
	"fmt"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 申请单导出服务
type ExportService struct {
	repos *repository.Repositories
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

var crExportHeaders = []string{
	"序号", "材料名称", "数量", "单位", "单价", "金额",
	"新材料", "原概算数量", "金额偏差", "供应商", "选商状态", "备注",
}

// ExportCR 导出申请单材料明细为xlsx
func (s *ExportService) ExportCR(ctx context.Context, crID string) (*excelize.File, string, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, "", err
	}
	selections, err := s.repos.Selection.SelectionMap(ctx, crID)
	if err != nil {
		return nil, "", fmt.Errorf("selection lookup: %w", err)
	}

	f := excelize.NewFile()
	sheet := "材料明细"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 写入表头
	for i, h := range crExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	for rowIdx, m := range cr.Materials {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.SortOrder)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.Unit)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.UnitPrice)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), m.TotalPrice)
		isNew := "否"
		if m.IsNew {
			isNew = "是"
		}
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), isNew)
		if m.BudgetQty != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), *m.BudgetQty)
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), m.CostDelta)
		if sel, ok := selections[m.Name]; ok {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), sel.VendorName)
			f.SetCellValue(sheet, fmt.Sprintf("K%d", row), sel.Status)
		} else if cr.RoutedMaterials.Contains(m.Name) {
			f.SetCellValue(sheet, fmt.Sprintf("K%d", row), entity.SelectionStatusStoreRouted)
		}
		f.SetCellValue(sheet, fmt.Sprintf("L%d", row), m.Notes)
	}

	// 底部汇总行
	summaryRow := len(cr.Materials) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("总材料数: %d", len(cr.Materials)))
	f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), cr.TotalCost)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("L%d", summaryRow), summaryStyle)

	// 列宽自适应
	colWidths := []float64{6, 24, 8, 6, 10, 12, 8, 10, 10, 20, 14, 20}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("CR_%s.xlsx", cr.CRCode)
	return f, filename, nil
}
