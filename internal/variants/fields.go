package variants

import "strings"

// Well-known Upgates export fields. Headers carry them as bracketed tags,
// e.g. "[PRODUCT_CODE]" or "[TITLE „sk“]".
const (
	FieldProductCode      = "PRODUCT_CODE"
	FieldVariantYN        = "VARIANT_YN"
	FieldVariantCode      = "VARIANT_CODE"
	FieldMainYN           = "MAIN_YN"
	FieldActiveYN         = "ACTIVE_YN"
	FieldArchivedYN       = "ARCHIVED_YN"
	FieldCanAddToBasketYN = "CAN_ADD_TO_BASKET_YN"
	FieldLanguage         = "LANGUAGE"
	FieldTitle            = "TITLE"
	FieldLongDescription  = "LONG_DESCRIPTION"
	FieldShortDescription = "SHORT_DESCRIPTION"
	FieldSEOURL           = "SEO_URL"
	FieldSEOTitle         = "SEO_TITLE"
	FieldSEODescription   = "SEO_DESCRIPTION"
	FieldEAN              = "EAN"
	FieldManufacturer     = "MANUFACTURER"
	FieldAvailability     = "AVAILABILITY"
	FieldAvailabilityNote = "AVAILABILITY_NOTE"
	FieldStock            = "STOCK"
	FieldWeight           = "WEIGHT"
	FieldUnit             = "UNIT"
	FieldVAT              = "VAT"
	FieldCategories       = "CATEGORIES"
	FieldImages           = "IMAGES"
	FieldPricesWithVATYN  = "IS_PRICES_WITH_VAT_YN"
	labelActiveMarker     = "LABEL_ACTIVE_YN"
	parameterMarker       = "PARAMETER"
	priceMarker           = "price"
)

var knownFields = []string{
	FieldProductCode, FieldVariantYN, FieldVariantCode, FieldMainYN, FieldActiveYN,
	FieldArchivedYN, FieldCanAddToBasketYN, FieldLanguage, FieldTitle, FieldLongDescription,
	FieldShortDescription, FieldSEOURL, FieldSEOTitle, FieldSEODescription, FieldEAN,
	FieldManufacturer, FieldAvailability, FieldAvailabilityNote, FieldStock, FieldWeight, FieldUnit,
	FieldVAT, FieldCategories, FieldImages, FieldPricesWithVATYN,
}

// Fields maps the singular well-known fields to the concrete source header
// that carries them. Fields absent from the source map to "".
//
// Role rules do not use Fields: a multilingual export carries one column per
// language ("[TITLE „sk“]", "[TITLE „cz“]") and every one of them must get
// the field's role. See MatchesField.
type Fields map[string]string

// ResolveFields locates every well-known field in columns.
//
// Lookup is two-pass per field: an exact, case-insensitive match of
// "[NAME]" or "NAME" (surrounding space ignored) wins; otherwise the first
// labelled column such as "[TITLE „sk“]" is used.
func ResolveFields(columns []string) Fields {
	f := make(Fields, len(knownFields))
	for _, name := range knownFields {
		f[name] = findField(columns, name)
	}
	return f
}

// Column returns the header carrying field, or "".
func (f Fields) Column(field string) string { return f[field] }

// Is reports whether col is the header resolved for field.
func (f Fields) Is(col, field string) bool {
	c := f[field]
	return c != "" && c == col
}

// MatchesField reports whether col carries the well-known field name, either
// bare ("[TITLE]", "TITLE") or with a label ("[TITLE „cz“]").
func MatchesField(col, name string) bool {
	return isBareField(col, name) || isLabelledField(col, name)
}

func matchesAny(col string, names []string) bool {
	for _, name := range names {
		if MatchesField(col, name) {
			return true
		}
	}
	return false
}

func isBareField(col, name string) bool {
	n := strings.TrimSpace(col)
	return strings.EqualFold(n, "["+name+"]") || strings.EqualFold(n, name)
}

// isLabelledField matches "[NAME" followed by "]" or a space anywhere in col.
func isLabelledField(col, name string) bool {
	u := strings.ToUpper(col)
	open := strings.ToUpper("[" + name)
	for off := 0; ; {
		i := strings.Index(u[off:], open)
		if i < 0 {
			return false
		}
		rest := u[off+i+len(open):]
		if strings.HasPrefix(rest, "]") || strings.HasPrefix(rest, " ") {
			return true
		}
		off += i + 1
	}
}

func findField(columns []string, name string) string {
	for _, c := range columns {
		if isBareField(c, name) {
			return c
		}
	}
	for _, c := range columns {
		if isLabelledField(c, name) {
			return c
		}
	}
	return ""
}

// IsParameterColumn reports whether col follows the "[PARAMETER …]" naming
// convention.
func IsParameterColumn(col string) bool {
	return strings.Contains(strings.ToUpper(col), parameterMarker)
}

// IsLabelColumn reports whether col is a "LABEL_ACTIVE_YN „…“" label flag.
func IsLabelColumn(col string) bool {
	return strings.Contains(col, labelActiveMarker)
}

// ParameterColumns returns the parameter-like columns in header order.
func ParameterColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if IsParameterColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

func isPriceColumn(col string) bool {
	return strings.Contains(strings.ToLower(col), priceMarker)
}

func isImageColumn(col string) bool {
	return MatchesField(col, FieldImages)
}
