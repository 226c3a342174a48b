package models

// ImportFormat represents the file format for a template download
type ImportFormat string

const (
	ImportFormatJSON ImportFormat = "json"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// Sheet names used by draft workbooks
const (
	ImportFieldsSheet       = "Fields"
	ImportInstructionsSheet = "Instructions"
)

// ImportTemplateColumn defines a column in one sheet of the import template
type ImportTemplateColumn struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Example  string    `json:"example,omitempty"`
}

// ImportTemplateSheet is one sheet of a draft workbook: the scalar fields
// sheet holds a single data row, every collection sheet one row per item.
type ImportTemplateSheet struct {
	Name       string                 `json:"name"`
	Collection bool                   `json:"collection"`
	Columns    []ImportTemplateColumn `json:"columns"`
}

// ImportTemplate defines the workbook layout for one product type
type ImportTemplate struct {
	ProductType string                `json:"productType"`
	Version     string                `json:"version"`
	Sheets      []ImportTemplateSheet `json:"sheets"`
}

// ImportCellError represents an error for a specific cell
type ImportCellError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// DraftImportTemplate derives the workbook layout from a schema
func DraftImportTemplate(schema *ProductSchema) ImportTemplate {
	tpl := ImportTemplate{ProductType: schema.Type, Version: "1.0"}

	fields := ImportTemplateSheet{Name: ImportFieldsSheet}
	for _, f := range schema.Scalars() {
		fields.Columns = append(fields.Columns, ImportTemplateColumn{
			Name:     f.Name,
			Kind:     f.Kind,
			Required: f.Required,
			Example:  exampleFor(f.Kind),
		})
	}
	tpl.Sheets = append(tpl.Sheets, fields)

	for _, c := range schema.Collections() {
		sheet := ImportTemplateSheet{Name: c.Name, Collection: true}
		for _, item := range c.Collection.Fields {
			sheet.Columns = append(sheet.Columns, ImportTemplateColumn{
				Name:    item.Name,
				Kind:    item.Kind,
				Example: exampleFor(item.Kind),
			})
		}
		tpl.Sheets = append(tpl.Sheets, sheet)
	}
	return tpl
}

func exampleFor(kind FieldKind) string {
	switch kind {
	case KindNumber:
		return "100"
	case KindBoolean:
		return "false"
	case KindRichText:
		return "<p></p>"
	}
	return ""
}

// DraftImportResult is returned by the draft import endpoint
type DraftImportResult struct {
	Success bool              `json:"success"`
	DraftID string            `json:"draftId,omitempty"`
	Errors  []ImportCellError `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
}
