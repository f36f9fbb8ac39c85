package exporter

import (
	"fmt"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

const (
	// maxSheetNameLen Excel Sheet 名长度上限
	maxSheetNameLen = 31
	// identityColumns 冻结的身份列个数
	identityColumns = 4
)

// NewWorkbook 把多张表写入新工作簿，每张表一个 Sheet
func NewWorkbook(tables []*Table, progress ProgressFunc) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "create header style")
	}

	reportProgress(progress, ProgressEvent{Percent: 0, Stage: "准备工作簿"})
	written := 0
	for i, t := range tables {
		if t == nil {
			continue
		}
		name := sheetName(t.Sheet, i)
		if written == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				_ = f.Close()
				return nil, eris.Wrapf(err, "rename sheet %s", name)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, eris.Wrapf(err, "create sheet %s", name)
		}

		if err := writeTable(f, name, t, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
		written++
		reportProgress(progress, ProgressEvent{
			Percent: (i + 1) * 100 / len(tables),
			Stage:   "写入 " + name,
			Sheet:   name,
			Rows:    len(t.Rows),
		})
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook 生成工作簿并保存到 path
func WriteWorkbook(path string, tables []*Table, progress ProgressFunc) error {
	f, err := NewWorkbook(tables, progress)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "save workbook %s", path)
	}
	reportProgress(progress, ProgressEvent{Percent: 100, Stage: "完成"})
	return nil
}

func writeTable(f *excelize.File, sheet string, t *Table, headerStyle int) error {
	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrapf(err, "write header of %s", sheet)
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return eris.Wrap(err, "cell name")
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return eris.Wrapf(err, "write row %d of %s", r+2, sheet)
		}
	}

	if len(t.Headers) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return eris.Wrap(err, "cell name")
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return eris.Wrapf(err, "style header of %s", sheet)
	}
	for i, h := range t.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return eris.Wrap(err, "column name")
		}
		if err := f.SetColWidth(sheet, col, col, columnWidth(h)); err != nil {
			return eris.Wrapf(err, "set width of %s", col)
		}
	}
	// 冻结表头与身份列
	xSplit := min(identityColumns, len(t.Headers))
	topLeft, err := excelize.CoordinatesToCellName(xSplit+1, 2)
	if err != nil {
		return eris.Wrap(err, "cell name")
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      xSplit,
		YSplit:      1,
		TopLeftCell: topLeft,
		ActivePane:  "bottomRight",
	})
}

func columnWidth(header string) float64 {
	w := float64(utf8.RuneCountInString(header))*2 + 2
	if w < 10 {
		return 10
	}
	if w > 40 {
		return 40
	}
	return w
}

func sheetName(name string, idx int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if utf8.RuneCountInString(name) > maxSheetNameLen {
		name = string([]rune(name)[:maxSheetNameLen])
	}
	return name
}
