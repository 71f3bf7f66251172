package variants

// Role is the semantic treatment a column receives when a group of rows is
// merged into one main product and its variants. Every column gets exactly
// one Role per run.
type Role int

const (
	// RolePassthrough is any column no rule recognised. It is treated like
	// RoleVariantOnly so unknown data is never silently copied onto main.
	RolePassthrough Role = iota
	// RoleIdentityShared carries the parent product code on every row.
	RoleIdentityShared
	// RoleIdentityVariant is empty on main and holds each row's own former
	// product code on its variant.
	RoleIdentityVariant
	// RoleDistinguishing is the chosen parameter that tells variants apart.
	RoleDistinguishing
	// RoleConstantPromotable is any other parameter column. Whether it lands
	// on main or on the variants is decided per run by DetectConstant.
	RoleConstantPromotable
	// RoleImageList unifies image references (see AggregateImages).
	RoleImageList
	// RoleLabelFlag is forced to "0" everywhere.
	RoleLabelFlag
	// RoleFixedFlag writes literal per-side values (VARIANT_YN, MAIN_YN, ...).
	RoleFixedFlag
	// RoleVariantOnly keeps each row's value on its variant; empty on main.
	RoleVariantOnly
	// RoleMainOnly copies the template value onto main; empty on variants.
	RoleMainOnly
)

var roleNames = [...]string{
	RolePassthrough:        "passthrough",
	RoleIdentityShared:     "identity_shared",
	RoleIdentityVariant:    "identity_variant",
	RoleDistinguishing:     "distinguishing_parameter",
	RoleConstantPromotable: "constant_promotable",
	RoleImageList:          "image_list",
	RoleLabelFlag:          "label_flag",
	RoleFixedFlag:          "fixed_flag",
	RoleVariantOnly:        "variant_only",
	RoleMainOnly:           "main_only",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// fixedValue is the pair of literals a RoleFixedFlag column receives.
// keepVariant leaves the variant's own value untouched.
type fixedValue struct {
	main        string
	variant     string
	keepVariant bool
}

// fixedFlags lists the literal values Upgates expects on a freshly merged
// family. LANGUAGE is filled in at build time from Config.Language.
var fixedFlags = map[string]fixedValue{
	FieldVariantYN:        {main: "0", variant: "1"},
	FieldMainYN:           {main: "", variant: "0"},
	FieldActiveYN:         {main: "1", variant: "1"},
	FieldArchivedYN:       {main: "0", variant: ""},
	FieldCanAddToBasketYN: {main: "1", variant: ""},
	FieldLanguage:         {keepVariant: true},
}

// fixedFlagFor returns the fixed values for a flag column in any of its
// spellings ("[ACTIVE_YN]", "[ACTIVE_YN „sk“]").
func fixedFlagFor(col string) (fixedValue, bool) {
	for field, fv := range fixedFlags {
		if MatchesField(col, field) {
			return fv, true
		}
	}
	return fixedValue{}, false
}

var variantOnlyFields = []string{FieldEAN, FieldStock, FieldWeight}

var mainOnlyFields = []string{
	FieldTitle, FieldLongDescription, FieldShortDescription,
	FieldSEOURL, FieldSEOTitle, FieldSEODescription,
	FieldManufacturer, FieldAvailability, FieldAvailabilityNote,
	FieldUnit, FieldVAT, FieldCategories, FieldPricesWithVATYN,
}
