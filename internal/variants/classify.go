package variants

// Schema is the per-run classification of a source header.
type Schema struct {
	// Columns is the source header order, unchanged.
	Columns []string
	// Roles maps every column to exactly one Role.
	Roles map[string]Role
	// Fields locates well-known Upgates fields in Columns.
	Fields Fields
	// Parameter is the distinguishing parameter column.
	Parameter string
	// Matched records which rule classified each column ("" for passthrough).
	Matched map[string]string
}

// ColumnsWithRole returns the columns holding role, in header order.
func (s *Schema) ColumnsWithRole(role Role) []string {
	var out []string
	for _, c := range s.Columns {
		if s.Roles[c] == role {
			out = append(out, c)
		}
	}
	return out
}

// classifyInput is what each rule sees for one column.
type classifyInput struct {
	col    string
	fields Fields
	param  string
}

type classifyRule struct {
	name  string
	role  Role
	match func(in classifyInput) bool
}

// classifyRules is evaluated top to bottom; the first match wins.
var classifyRules = []classifyRule{
	{"parent_code", RoleIdentityShared, func(in classifyInput) bool {
		return in.fields.Is(in.col, FieldProductCode)
	}},
	{"variant_code", RoleIdentityVariant, func(in classifyInput) bool {
		return in.fields.Is(in.col, FieldVariantCode)
	}},
	{"distinguishing_parameter", RoleDistinguishing, func(in classifyInput) bool {
		return in.col == in.param
	}},
	{"parameter", RoleConstantPromotable, func(in classifyInput) bool {
		return IsParameterColumn(in.col)
	}},
	{"images", RoleImageList, func(in classifyInput) bool {
		return isImageColumn(in.col)
	}},
	{"label", RoleLabelFlag, func(in classifyInput) bool {
		return IsLabelColumn(in.col)
	}},
	{"fixed_flag", RoleFixedFlag, func(in classifyInput) bool {
		_, ok := fixedFlagFor(in.col)
		return ok
	}},
	{"variant_only", RoleVariantOnly, func(in classifyInput) bool {
		if matchesAny(in.col, variantOnlyFields) {
			return true
		}
		// The VAT-inclusive flag mentions prices but describes the product.
		return isPriceColumn(in.col) && !MatchesField(in.col, FieldPricesWithVATYN)
	}},
	{"main_only", RoleMainOnly, func(in classifyInput) bool {
		return matchesAny(in.col, mainOnlyFields)
	}},
}

// Classify assigns a Role to every column.
//
// param must name an existing column exactly; resolving loose user input
// (substring matches, prompts) happens before Classify is called.
//
// Errors:
//   - *ConfigurationError when param is empty or not a source column, or
//     when the source has no PRODUCT_CODE column.
func Classify(columns []string, param string) (*Schema, error) {
	if param == "" {
		if len(ParameterColumns(columns)) == 0 {
			return nil, &ConfigurationError{Field: "param", Msg: "no PARAMETER column found and none specified"}
		}
		return nil, &ConfigurationError{Field: "param", Msg: "distinguishing parameter not specified"}
	}

	found := false
	for _, c := range columns {
		if c == param {
			found = true
			break
		}
	}
	if !found {
		return nil, &ConfigurationError{Field: "param", Column: param, Msg: "distinguishing parameter is not a source column"}
	}

	fields := ResolveFields(columns)
	if fields.Column(FieldProductCode) == "" {
		return nil, &ConfigurationError{Field: "columns", Msg: "missing [PRODUCT_CODE] header"}
	}

	s := &Schema{
		Columns:   append([]string(nil), columns...),
		Roles:     make(map[string]Role, len(columns)),
		Fields:    fields,
		Parameter: param,
		Matched:   make(map[string]string, len(columns)),
	}
	for _, c := range columns {
		s.Roles[c], s.Matched[c] = classifyColumn(classifyInput{col: c, fields: fields, param: param})
	}
	return s, nil
}

func classifyColumn(in classifyInput) (Role, string) {
	for _, r := range classifyRules {
		if r.match(in) {
			return r.role, r.name
		}
	}
	return RolePassthrough, ""
}
