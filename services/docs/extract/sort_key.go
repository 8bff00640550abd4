// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import "fmt"

// sortKeyLineWidth is the zero-padded width of the line number in a sort
// key. Lines up to 99999999 keep lexicographic and numeric order equal.
const sortKeyLineWidth = 8

// BuildSortKey returns the sort key for a doclet documenting a node that
// starts on line (1-based).
//
// Description:
//
//	The key is base followed directly by the zero-padded line. Comparing keys as
//	strings orders first by base (pass or file order) and then by line.
//	Equal keys are not disambiguated.
func BuildSortKey(base string, line int) string {
	return fmt.Sprintf("%s%0*d", base, sortKeyLineWidth, line)
}

// FileSortKey returns the base sort key for the index-th file of a batch.
func FileSortKey(index int) string {
	return fmt.Sprintf("%0*d", sortKeyLineWidth, index)
}
