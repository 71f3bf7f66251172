package variants

import (
	"regexp"
	"strings"

	"upvariants/pkg/records"
)

// ImageSeparator joins image references when writing a list back out.
const ImageSeparator = ";"

// imageSplit accepts the separators seen in supplier exports.
var imageSplit = regexp.MustCompile(`[;|,]\s*`)

// ParseImages splits a cell into its image references, dropping blanks.
func ParseImages(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := imageSplit.Split(v, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinImages is the inverse of ParseImages.
func JoinImages(images []string) string {
	return strings.Join(images, ImageSeparator)
}

// FirstImage returns the first reference of a cell, or "".
func FirstImage(v string) string {
	if imgs := ParseImages(v); len(imgs) > 0 {
		return imgs[0]
	}
	return ""
}

// MergeImages returns every reference in values, in first-seen order, with
// exact duplicates removed.
func MergeImages(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		for _, img := range ParseImages(v) {
			if _, ok := seen[img]; ok {
				continue
			}
			seen[img] = struct{}{}
			out = append(out, img)
		}
	}
	return out
}

// AggregateImages computes the main-row value for each image column. A
// schema without image columns yields an empty map.
func AggregateImages(rows []records.Record, imageColumns []string) map[string]string {
	out := make(map[string]string, len(imageColumns))
	for _, col := range imageColumns {
		vals := make([]string, len(rows))
		for i, r := range rows {
			vals[i] = r[col]
		}
		out[col] = JoinImages(MergeImages(vals))
	}
	return out
}
