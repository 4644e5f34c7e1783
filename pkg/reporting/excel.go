package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
)

// Workbook sheet names
const (
	ResultsSheet = "Results"
	EquitySheet  = "Equity"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct {
	// CurveCount is how many of the best strategies get an equity column and chart line.
	CurveCount int
}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{CurveCount: 10}
}

// WriteResultsXLSX writes a results sheet and an equity sheet for the best strategies
func (r *DefaultExcelReporter) WriteResultsXLSX(results []backtest.StrategyResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx, err := r.Build(results)
	if err != nil {
		return err
	}
	defer fx.Close()

	return fx.SaveAs(path)
}

// Build assembles the workbook in memory
func (r *DefaultExcelReporter) Build(results []backtest.StrategyResult) (*excelize.File, error) {
	ranked := make([]backtest.StrategyResult, len(results))
	copy(ranked, results)
	backtest.RankResults(ranked)

	fx := excelize.NewFile()
	if err := fx.SetSheetName(fx.GetSheetName(0), ResultsSheet); err != nil {
		fx.Close()
		return nil, err
	}
	if _, err := fx.NewSheet(EquitySheet); err != nil {
		fx.Close()
		return nil, err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		fx.Close()
		return nil, err
	}
	if err := r.writeResultsSheet(fx, ranked, styles); err != nil {
		fx.Close()
		return nil, err
	}
	if err := r.writeEquitySheet(fx, ranked, styles); err != nil {
		fx.Close()
		return nil, err
	}
	return fx, nil
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4, // #,##0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    2, // 0.00, ratios are already percentages
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.RedStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "C00000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "00B050"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	return styles, err
}

var resultColumns = []string{
	"Rank", "Strategy", "Trades", "Won", "Lost", "Unknown", "Closed", "Unclosed",
	"Win %", "Lose %", "Unknown %", "Needed %", "Efficiency", "R:R",
	"Start $", "Final $", "Return %", "Max DD %", "Depleted",
}

func (r *DefaultExcelReporter) writeResultsSheet(fx *excelize.File, results []backtest.StrategyResult, styles ExcelStyles) error {
	for i, h := range resultColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(ResultsSheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(resultColumns), 1)
	if err := fx.SetCellStyle(ResultsSheet, "A1", last, styles.HeaderStyle); err != nil {
		return err
	}

	for i, res := range results {
		row := i + 2
		values := []interface{}{
			i + 1, res.Strategy.Label(), res.TotalTrades, res.TotalWin, res.TotalLost, res.TotalUnknown,
			res.TotalClosed, res.TotalUnclosed,
		}
		if res.Ratios != nil {
			values = append(values, res.Ratios.WinRatio, res.Ratios.LoseRatio, res.Ratios.UnknownRatio)
		} else {
			values = append(values, "n/a", "n/a", "n/a")
		}
		values = append(values, res.NeededWinPercentage)
		if res.Ratios != nil {
			values = append(values, res.Ratios.Efficiency)
		} else {
			values = append(values, "n/a")
		}
		values = append(values, res.RiskRewardRatio, res.StartMoney, res.FinalMoney, res.TotalReturn,
			res.MaxDrawdown, res.EquityDepleted)

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(ResultsSheet, cell, v); err != nil {
				return err
			}
			if err := fx.SetCellStyle(ResultsSheet, cell, cell, r.styleFor(col, res, styles)); err != nil {
				return err
			}
		}
	}

	_ = fx.SetColWidth(ResultsSheet, "A", "A", 6)
	_ = fx.SetColWidth(ResultsSheet, "B", "B", 55)
	_ = fx.SetColWidth(ResultsSheet, "C", "S", 11)
	return fx.SetPanes(ResultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (r *DefaultExcelReporter) styleFor(col int, res backtest.StrategyResult, styles ExcelStyles) int {
	switch resultColumns[col] {
	case "Win %", "Lose %", "Unknown %", "Needed %", "Efficiency", "R:R", "Max DD %":
		return styles.PercentStyle
	case "Start $":
		return styles.CurrencyStyle
	case "Final $", "Return %":
		if res.FinalMoney < res.StartMoney {
			return styles.RedStyle
		}
		return styles.GreenStyle
	default:
		return styles.BaseStyle
	}
}

// writeEquitySheet lays out one equity column per strategy, row 2 holding the start money,
// and charts them.
func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, results []backtest.StrategyResult, styles ExcelStyles) error {
	if err := fx.SetCellValue(EquitySheet, "A1", "Trade"); err != nil {
		return err
	}

	curves := results
	if r.CurveCount > 0 && len(curves) > r.CurveCount {
		curves = curves[:r.CurveCount]
	}

	longest := 0
	var series []excelize.ChartSeries
	for i, res := range curves {
		col := i + 2
		colName, _ := excelize.ColumnNumberToName(col)
		header, _ := excelize.CoordinatesToCellName(col, 1)
		if err := fx.SetCellValue(EquitySheet, header, fmt.Sprintf("#%d %s", i+1, res.Strategy.Label())); err != nil {
			return err
		}

		points := append([]float64{res.StartMoney}, res.MoneyEvolution...)
		for j, v := range points {
			cell, _ := excelize.CoordinatesToCellName(col, j+2)
			if err := fx.SetCellValue(EquitySheet, cell, v); err != nil {
				return err
			}
		}
		if len(points) > longest {
			longest = len(points)
		}
		if len(points) > 1 {
			series = append(series, excelize.ChartSeries{
				Name:   fmt.Sprintf("%s!$%s$1", EquitySheet, colName),
				Values: fmt.Sprintf("%s!$%s$2:$%s$%d", EquitySheet, colName, colName, len(points)+1),
			})
		}
	}

	for j := 0; j < longest; j++ {
		cell, _ := excelize.CoordinatesToCellName(1, j+2)
		if err := fx.SetCellValue(EquitySheet, cell, j); err != nil {
			return err
		}
	}

	if len(curves) > 0 {
		lastHeader, _ := excelize.CoordinatesToCellName(len(curves)+1, 1)
		if err := fx.SetCellStyle(EquitySheet, "A1", lastHeader, styles.HeaderStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(curves) + 1)
		_ = fx.SetColWidth(EquitySheet, "B", lastCol, 18)
	}

	if len(series) == 0 {
		return nil
	}
	anchor, _ := excelize.CoordinatesToCellName(len(curves)+3, 2)
	return fx.AddChart(EquitySheet, anchor, &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Equity evolution"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{
			Width:  960,
			Height: 480,
		},
	})
}
