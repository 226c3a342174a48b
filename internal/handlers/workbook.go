package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
)

const requiredSuffix = " *"

// buildTemplateWorkbook lays out one sheet for the scalar fields and one per
// collection, followed by an instructions sheet.
func buildTemplateWorkbook(schema *models.ProductSchema) (*excelize.File, error) {
	tpl := models.DraftImportTemplate(schema)
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	for i, sheet := range tpl.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, err
		}

		for col, column := range sheet.Columns {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			header, style := column.Name, headerStyle
			if column.Required {
				header, style = column.Name+requiredSuffix, requiredStyle
			}
			f.SetCellValue(sheet.Name, cell, header)
			f.SetCellStyle(sheet.Name, cell, cell, style)

			colName, _ := excelize.ColumnNumberToName(col + 1)
			f.SetColWidth(sheet.Name, colName, colName, 20)
		}
	}

	sheet := models.ImportInstructionsSheet
	f.NewSheet(sheet)
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s Draft Import Instructions", schema.Label))
	f.SetCellValue(sheet, "A3", "The Fields sheet takes a single row. Every other sheet takes one row per item; leave a sheet empty to keep its default item.")
	f.SetCellValue(sheet, "A4", "Columns marked with * are required before the product can be published.")
	f.SetCellValue(sheet, "A6", "Sheet")
	f.SetCellValue(sheet, "B6", "Column")
	f.SetCellValue(sheet, "C6", "Type")
	f.SetCellValue(sheet, "D6", "Required")
	f.SetCellValue(sheet, "E6", "Example")
	row := 7
	for _, s := range tpl.Sheets {
		for _, col := range s.Columns {
			required := "No"
			if col.Required {
				required = "Yes"
			}
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), s.Name)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), col.Name)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(col.Kind))
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), required)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), col.Example)
			row++
		}
	}
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "B", 25)
	f.SetColWidth(sheet, "C", "D", 12)
	f.SetColWidth(sheet, "E", "E", 30)

	return f, nil
}

// parseDraftWorkbook reads a filled template back into a snapshot. Cell
// level problems are collected rather than returned one at a time.
func parseDraftWorkbook(schema *models.ProductSchema, r io.Reader) (draft.Snapshot, []models.ImportCellError, error) {
	snap := draft.Snapshot{
		ProductType: schema.Type,
		Scalars:     make(map[string]any),
		Collections: make(map[string][]models.SubRecord),
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}
	if !sheets[models.ImportFieldsSheet] {
		return snap, nil, fmt.Errorf("workbook has no %s sheet", models.ImportFieldsSheet)
	}

	var cellErrs []models.ImportCellError

	rows, err := f.GetRows(models.ImportFieldsSheet)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) >= 2 {
		headers := sheetHeaders(rows[0])
		for i, text := range rows[1] {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			spec, ok := schema.Field(headers[i])
			if !ok || !spec.Kind.IsScalar() {
				cellErrs = append(cellErrs, models.ImportCellError{
					Sheet: models.ImportFieldsSheet, Row: 2, Column: headers[i],
					Message: "unknown column",
				})
				continue
			}
			v, err := models.ParseText(spec.Kind, text)
			if err != nil {
				cellErrs = append(cellErrs, models.ImportCellError{
					Sheet: models.ImportFieldsSheet, Row: 2, Column: headers[i],
					Message: err.Error(),
				})
				continue
			}
			snap.Scalars[spec.Name] = v
		}
	}

	for _, coll := range schema.Collections() {
		if !sheets[coll.Name] {
			continue
		}
		rows, err := f.GetRows(coll.Name)
		if err != nil {
			return snap, nil, fmt.Errorf("failed to read sheet %s: %w", coll.Name, err)
		}
		if len(rows) < 2 {
			continue
		}
		headers := sheetHeaders(rows[0])
		known := true
		for _, h := range headers {
			if _, ok := coll.Collection.Field(h); h != "" && !ok {
				cellErrs = append(cellErrs, models.ImportCellError{
					Sheet: coll.Name, Row: 1, Column: h,
					Message: "unknown column",
				})
				known = false
			}
		}
		if !known {
			continue
		}

		var items []models.SubRecord
		for rowIdx, row := range rows[1:] {
			if blankRow(row) {
				continue
			}
			cells := make(map[string]string, len(headers))
			for i, text := range row {
				if i < len(headers) && headers[i] != "" {
					cells[headers[i]] = text
				}
			}
			item := make(models.SubRecord, len(coll.Collection.Fields))
			for _, field := range coll.Collection.Fields {
				v, err := models.ParseText(field.Kind, cells[field.Name])
				if err != nil {
					cellErrs = append(cellErrs, models.ImportCellError{
						Sheet: coll.Name, Row: rowIdx + 2, Column: field.Name,
						Message: err.Error(),
					})
					continue
				}
				item[field.Name] = v
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			snap.Collections[coll.Name] = items
		}
	}

	return snap, cellErrs, nil
}

func sheetHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSuffix(strings.TrimSpace(h), requiredSuffix)
	}
	return headers
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
