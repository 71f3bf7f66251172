// Package variants merges rows that describe variants of one product into
// a single main product row followed by one variant row per source row.
//
// The input header is unknown until runtime. Columns are classified by name
// (see Classify), parameter columns that never vary are promoted to the main
// row (see DetectConstant), image lists are unified (see AggregateImages),
// and the output keeps the source column order exactly.
//
// The package does no I/O and never prompts; callers resolve every option
// before calling Build.
package variants

import (
	"fmt"

	"upvariants/pkg/records"
)

// Config is the fully resolved set of options for one merge.
type Config struct {
	// Parameter is the exact header of the distinguishing parameter.
	Parameter string
	// ParentCode is written to PRODUCT_CODE on every output row.
	// Empty means the template row's own PRODUCT_CODE.
	ParentCode string
	// MainTitle overrides the template TITLE on the main row when non-empty.
	// In a multilingual export only the first TITLE column is overridden.
	MainTitle string
	// TemplateIndex selects the 0-based source row used for main-only fields.
	TemplateIndex int
	// Language is written to LANGUAGE on the main row. Empty keeps the
	// template row's value.
	Language string
}

// Result is the merged table plus the decisions that produced it.
type Result struct {
	Table  *records.Table
	Schema *Schema
	// Promoted lists promoted parameter columns in header order.
	Promoted []string
	// ParentCode is the parent code actually used.
	ParentCode string
}

// Build merges in into one main row followed by len(in.Rows) variant rows.
//
// Errors:
//   - ErrEmptyInput when in has no rows.
//   - *SchemaMismatchError when a row's keys differ from in.Columns.
//   - *ConfigurationError for an unknown parameter, a missing PRODUCT_CODE
//     header or a template index outside the row range.
//
// Build never mutates in.
func Build(in *records.Table, cfg Config) (*Result, error) {
	if in.Len() == 0 {
		return nil, ErrEmptyInput
	}
	if err := checkRows(in); err != nil {
		return nil, err
	}

	schema, err := Classify(in.Columns, cfg.Parameter)
	if err != nil {
		return nil, err
	}

	if cfg.TemplateIndex < 0 || cfg.TemplateIndex >= len(in.Rows) {
		return nil, &ConfigurationError{
			Field: "template_index",
			Msg:   fmt.Sprintf("index %d out of range [0,%d)", cfg.TemplateIndex, len(in.Rows)),
		}
	}
	template := in.Rows[cfg.TemplateIndex]

	codeCol := schema.Fields.Column(FieldProductCode)
	parent := cfg.ParentCode
	if parent == "" {
		parent = template[codeCol]
	}

	promoted := DetectConstant(in.Rows, schema.ColumnsWithRole(RoleConstantPromotable))
	s := &synth{
		schema:   schema,
		cfg:      cfg,
		parent:   parent,
		template: template,
		promoted: promoted,
		images:   AggregateImages(in.Rows, schema.ColumnsWithRole(RoleImageList)),
	}

	out := &records.Table{
		Columns: append([]string(nil), in.Columns...),
		Rows:    make([]records.Record, 0, len(in.Rows)+1),
	}
	out.Rows = append(out.Rows, s.mainRow())
	for _, r := range in.Rows {
		out.Rows = append(out.Rows, s.variantRow(r))
	}

	res := &Result{Table: out, Schema: schema, ParentCode: parent}
	for _, c := range schema.ColumnsWithRole(RoleConstantPromotable) {
		if _, ok := promoted[c]; ok {
			res.Promoted = append(res.Promoted, c)
		}
	}
	return res, nil
}

// checkRows rejects rows whose keys do not match the header exactly.
func checkRows(in *records.Table) error {
	for i, r := range in.Rows {
		for _, c := range in.Columns {
			if _, ok := r[c]; !ok {
				return &SchemaMismatchError{Row: i, Column: c, Msg: "missing column"}
			}
		}
		if len(r) != len(in.Columns) {
			for k := range r {
				if !in.HasColumn(k) {
					return &SchemaMismatchError{Row: i, Column: k, Msg: "unexpected column"}
				}
			}
			return &SchemaMismatchError{Row: i, Msg: fmt.Sprintf("has %d columns, header has %d", len(r), len(in.Columns))}
		}
	}
	return nil
}

type synth struct {
	schema   *Schema
	cfg      Config
	parent   string
	template records.Record
	promoted map[string]string
	images   map[string]string
}

func (s *synth) mainRow() records.Record {
	row := make(records.Record, len(s.schema.Columns))
	for _, c := range s.schema.Columns {
		row[c] = s.mainValue(c)
	}
	return row
}

func (s *synth) variantRow(src records.Record) records.Record {
	row := make(records.Record, len(s.schema.Columns))
	for _, c := range s.schema.Columns {
		row[c] = s.variantValue(c, src)
	}
	return row
}

func (s *synth) mainValue(col string) string {
	switch s.schema.Roles[col] {
	case RoleIdentityShared:
		return s.parent
	case RoleConstantPromotable:
		return s.promoted[col]
	case RoleImageList:
		return s.images[col]
	case RoleLabelFlag:
		return "0"
	case RoleFixedFlag:
		if MatchesField(col, FieldLanguage) {
			if s.cfg.Language != "" {
				return s.cfg.Language
			}
			return s.template[col]
		}
		fv, _ := fixedFlagFor(col)
		return fv.main
	case RoleMainOnly:
		if s.cfg.MainTitle != "" && s.schema.Fields.Is(col, FieldTitle) {
			return s.cfg.MainTitle
		}
		return s.template[col]
	default:
		// identity_variant, distinguishing_parameter, variant_only, passthrough
		return ""
	}
}

func (s *synth) variantValue(col string, src records.Record) string {
	switch s.schema.Roles[col] {
	case RoleIdentityShared:
		return s.parent
	case RoleIdentityVariant:
		return s.variantCode(src)
	case RoleConstantPromotable:
		if _, ok := s.promoted[col]; ok {
			return ""
		}
		return src[col]
	case RoleImageList:
		return FirstImage(src[col])
	case RoleLabelFlag:
		return "0"
	case RoleFixedFlag:
		fv, _ := fixedFlagFor(col)
		if fv.keepVariant {
			return src[col]
		}
		return fv.variant
	case RoleMainOnly:
		return ""
	default:
		// distinguishing_parameter, variant_only, passthrough
		return src[col]
	}
}

// variantCode is the row's former PRODUCT_CODE. A row that already belongs
// to this parent and carries a VARIANT_CODE keeps it, so merging an already
// merged family again does not collapse every variant code onto the parent.
func (s *synth) variantCode(src records.Record) string {
	code := src[s.schema.Fields.Column(FieldProductCode)]
	if code == s.parent {
		if vc := src[s.schema.Fields.Column(FieldVariantCode)]; vc != "" {
			return vc
		}
	}
	return code
}
