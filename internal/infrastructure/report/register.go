package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
)

// DefaultSheetName is used when no sheet name is configured
const DefaultSheetName = "Register"

var registerHeader = []interface{}{
	"ID", "Requester", "Type", "Requester Role", "Department", "Status",
	"Amount", "Days", "HOD", "HRM", "Auditor", "Finance", "ED",
	"Created", "Updated",
}

// RegisterExporter writes the approval register as an XLSX workbook
type RegisterExporter struct {
	sheetName string
	logger    *zap.Logger
}

// NewRegisterExporter creates a register exporter
func NewRegisterExporter(sheetName string, logger *zap.Logger) *RegisterExporter {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &RegisterExporter{
		sheetName: sheetName,
		logger:    logger,
	}
}

// Export writes one row per request, with the state of each of the five stages
func (e *RegisterExporter) Export(ctx context.Context, w io.Writer, requests []*entity.Request) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, e.sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(e.sheetName, "A1", &registerHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(registerHeader))
		_ = f.SetCellStyle(e.sheetName, "A1", lastCol+"1", style)
	}
	if err := f.SetPanes(e.sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		e.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := registerRow(req)
		if err := f.SetSheetRow(e.sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write request %d: %w", req.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Register exported", zap.Int("rows", len(requests)))
	return nil
}

func registerRow(req *entity.Request) []interface{} {
	amount := ""
	if req.Amount != nil {
		amount = req.Amount.StringFixed(2)
	}
	days := ""
	if req.Type.IsLeave() {
		days = fmt.Sprintf("%d", req.DaysApplied)
	}

	row := []interface{}{
		req.ID,
		req.RequesterID,
		req.Type.String(),
		req.RequesterRole.String(),
		req.RequesterDepartment,
		string(req.Status()),
		amount,
		days,
	}
	for _, st := range req.Stages.Ordered() {
		row = append(row, st.State.String())
	}
	return append(row,
		req.CreatedAt.UTC().Format("2006-01-02 15:04"),
		req.UpdatedAt.UTC().Format("2006-01-02 15:04"),
	)
}

// Verify interface compliance
var _ port.RegisterExporter = (*RegisterExporter)(nil)
