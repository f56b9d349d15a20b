package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// styleIDs holds the style registry for one workbook. Registering once per
// open keeps style IDs stable, so regenerating the summary with no data
// change produces identical output.
type styleIDs struct {
	header       int // bold white on blue, centered
	title        int // summary title banner, green
	metricHeader int // metric table header, green
	detailHeader int // detail table header, blue with medium border
	detailText   int // detail cell, thin border
	detailMoney  int // detail cell, thin border + currency mask
	currency     int
	percent      int
	bold         int
	chartBanner  int
	chartTitle   int
	tip          int
	profitUp     int // conditional: positive profit
	profitDown   int // conditional: negative profit
}

func registerStyles(f *excelize.File) (styleIDs, error) {
	var ids styleIDs
	var err error

	currency := currencyFmt
	percent := percentFmt

	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	blueFill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"0066CC"}}
	greenFill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00AA00"}}
	thin := []excelize.Border{
		{Type: "top", Style: 1}, {Type: "left", Style: 1},
		{Type: "bottom", Style: 1}, {Type: "right", Style: 1},
	}
	medium := []excelize.Border{
		{Type: "top", Style: 2}, {Type: "left", Style: 2},
		{Type: "bottom", Style: 2}, {Type: "right", Style: 2},
	}

	if ids.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      blueFill,
		Alignment: center,
	}); err != nil {
		return ids, err
	}
	if ids.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      greenFill,
		Alignment: center,
	}); err != nil {
		return ids, err
	}
	if ids.metricHeader, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      greenFill,
		Alignment: center,
	}); err != nil {
		return ids, err
	}
	if ids.detailHeader, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      blueFill,
		Alignment: center,
		Border:    medium,
	}); err != nil {
		return ids, err
	}
	if ids.detailText, err = f.NewStyle(&excelize.Style{Border: thin}); err != nil {
		return ids, err
	}
	if ids.detailMoney, err = f.NewStyle(&excelize.Style{
		Border:       thin,
		CustomNumFmt: &currency,
	}); err != nil {
		return ids, err
	}
	if ids.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currency}); err != nil {
		return ids, err
	}
	if ids.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &percent}); err != nil {
		return ids, err
	}
	if ids.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return ids, err
	}
	if ids.chartBanner, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      blueFill,
		Alignment: center,
	}); err != nil {
		return ids, err
	}
	if ids.chartTitle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "0066CC"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E7F3FF"}},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}); err != nil {
		return ids, err
	}
	if ids.tip, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "666666"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFFE0"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return ids, err
	}
	if ids.profitUp, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "006100"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	}); err != nil {
		return ids, err
	}
	if ids.profitDown, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	}); err != nil {
		return ids, err
	}
	return ids, nil
}

// sheetWriter threads one error through a run of cell writes.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) value(cell string, v interface{}) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func (w *sheetWriter) formula(cell, formula string) {
	if w.err == nil {
		w.err = w.f.SetCellFormula(w.sheet, cell, formula)
	}
}

func (w *sheetWriter) style(topLeft, bottomRight string, styleID int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, topLeft, bottomRight, styleID)
	}
}

func (w *sheetWriter) merge(topLeft, bottomRight string) {
	if w.err == nil {
		w.err = w.f.MergeCell(w.sheet, topLeft, bottomRight)
	}
}

func (w *sheetWriter) rowHeight(row int, height float64) {
	if w.err == nil {
		w.err = w.f.SetRowHeight(w.sheet, row, height)
	}
}

func (w *sheetWriter) colWidth(col string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

// regenerateSummary rebuilds the Summary sheet in full from the current
// Projects rows. Dropping and recreating the sheet makes the rebuild
// idempotent: same rows in, same sheet out.
func regenerateSummary(wb *workbook) error {
	f := wb.file
	if err := f.DeleteSheet(sheetSummary); err != nil {
		return fmt.Errorf("drop summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("recreate summary sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: sheetSummary}

	w.merge("A1", "D1")
	w.value("A1", "Monthly Summary")
	w.style("A1", "D1", wb.styles.title)
	w.rowHeight(1, 30)

	w.value("A3", "Metric")
	w.value("B3", "Value")
	w.style("A3", "B3", wb.styles.metricHeader)
	w.rowHeight(3, 25)

	w.value("A4", "Total Projects")
	w.formula("B4", fmt.Sprintf("COUNTA(%s!A2:A%d)", sheetProjects, maxDataRow))
	w.value("A5", "Total Revenue")
	w.formula("B5", fmt.Sprintf("SUM(%s!G2:G%d)", sheetProjects, maxDataRow))
	w.style("B5", "B5", wb.styles.currency)
	w.value("A6", "Total Costs")
	w.formula("B6", fmt.Sprintf("SUM(%s!M2:M%d)", sheetProjects, maxDataRow))
	w.style("B6", "B6", wb.styles.currency)
	w.value("A7", "Net Profit")
	w.formula("B7", "B5-B6")
	w.style("B7", "B7", wb.styles.currency)

	w.colWidth("A", 30)
	w.colWidth("B", 20)
	w.colWidth("C", 20)
	w.colWidth("D", 20)
	w.rowHeight(8, 10)

	w.value("A9", "Project")
	w.value("B9", "Total Cost")
	w.value("C9", "Client Payment")
	w.value("D9", "Profit")
	w.style("A9", "D9", wb.styles.detailHeader)
	w.rowHeight(9, 25)
	if w.err != nil {
		return w.err
	}

	// One detail row per project, linked by cell reference so the rollup
	// stays live if the Projects sheet is edited by hand.
	rows, err := f.GetRows(sheetProjects, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("read project rows: %w", err)
	}
	detail := 10
	for i, row := range rows {
		if i == 0 || cellAt(row, 0) == "" {
			continue
		}
		src := i + 1
		w.formula(fmt.Sprintf("A%d", detail), fmt.Sprintf("%s!A%d", sheetProjects, src))
		w.formula(fmt.Sprintf("B%d", detail), fmt.Sprintf("%s!M%d", sheetProjects, src))
		w.formula(fmt.Sprintf("C%d", detail), fmt.Sprintf("%s!G%d", sheetProjects, src))
		w.formula(fmt.Sprintf("D%d", detail), fmt.Sprintf("%s!N%d", sheetProjects, src))
		w.style(fmt.Sprintf("A%d", detail), fmt.Sprintf("A%d", detail), wb.styles.detailText)
		w.style(fmt.Sprintf("B%d", detail), fmt.Sprintf("D%d", detail), wb.styles.detailMoney)
		detail++
	}
	if w.err != nil {
		return w.err
	}

	count := detail - 10
	if count == 0 {
		return nil
	}
	last := 9 + count

	if err := f.SetConditionalFormat(sheetSummary,
		fmt.Sprintf("D10:D%d", last),
		[]excelize.ConditionalFormatOptions{
			{Type: "cell", Criteria: ">", Value: "0", Format: &wb.styles.profitUp},
			{Type: "cell", Criteria: "<", Value: "0", Format: &wb.styles.profitDown},
		}); err != nil {
		return fmt.Errorf("profit conditional format: %w", err)
	}

	return writeChartGuide(wb, w, last)
}

// writeChartGuide appends the static rows describing how to build the two
// standard charts from the live ranges. Documentation only, no computed
// state.
func writeChartGuide(wb *workbook, w *sheetWriter, last int) error {
	row := last + 2

	w.merge(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row))
	w.value(fmt.Sprintf("A%d", row), "CHARTS")
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wb.styles.chartBanner)
	w.rowHeight(row, 30)
	row += 2

	w.merge(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row))
	w.value(fmt.Sprintf("A%d", row), "Chart 1: Total Cost vs Client Payment (Clustered Column)")
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wb.styles.chartTitle)
	row++
	w.value(fmt.Sprintf("A%d", row), fmt.Sprintf("- Select range: A9:C%d", last))
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), wb.styles.bold)
	row++
	w.value(fmt.Sprintf("A%d", row), "- Insert > Charts > Clustered Column Chart")
	row++
	w.value(fmt.Sprintf("A%d", row), "- The chart compares Total Cost and Client Payment per project")
	row += 2

	w.merge(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row))
	w.value(fmt.Sprintf("A%d", row), "Chart 2: Profit per Project (Bar Chart)")
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wb.styles.chartTitle)
	row++
	w.value(fmt.Sprintf("A%d", row), fmt.Sprintf("- Select Project column (A9:A%d)", last))
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), wb.styles.bold)
	row++
	w.value(fmt.Sprintf("A%d", row), fmt.Sprintf("- Hold Ctrl/Cmd and select Profit column (D9:D%d)", last))
	row++
	w.value(fmt.Sprintf("A%d", row), "- Insert > Charts > Bar Chart")
	row++
	w.value(fmt.Sprintf("A%d", row), "- Green bars mark profitable projects, red bars losses")
	row += 2

	w.merge(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row))
	w.value(fmt.Sprintf("A%d", row), "TIP: Both charts update automatically when you add or remove projects")
	w.style(fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), wb.styles.tip)

	return w.err
}
