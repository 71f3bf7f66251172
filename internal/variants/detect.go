package variants

import "upvariants/pkg/records"

// DetectConstant decides, for each candidate column, whether it is promoted
// to the main row. A column is promoted when every row carries the same
// non-empty value; the returned map holds promoted column -> that value.
//
// Comparison is exact: " Steel" and "Steel" differ, and so do "steel" and
// "Steel". A column that is empty on every row stays per-row (there is
// nothing to promote). With a single row every non-empty candidate is
// promoted.
func DetectConstant(rows []records.Record, candidates []string) map[string]string {
	promoted := make(map[string]string, len(candidates))
	if len(rows) == 0 {
		return promoted
	}
	for _, col := range candidates {
		first := rows[0][col]
		if first == "" {
			continue
		}
		same := true
		for _, r := range rows[1:] {
			if r[col] != first {
				same = false
				break
			}
		}
		if same {
			promoted[col] = first
		}
	}
	return promoted
}
