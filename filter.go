/*
Copyright 2025 Leadsync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package leadsync

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/dealerkit/leadsync/model"
)

// searchDrift is the allowable levenshtein drift (percent of the longer
// string) for free-text matches, tolerating small typos in agent searches.
const searchDrift = 20.0

// SnapshotFilter selects which rows of a reconciled snapshot are visible.
// The zero value matches every lead.
type SnapshotFilter struct {
	// Claimed restricts to claimed (true) or unclaimed (false) leads when
	// set; nil means both.
	Claimed *bool
	// Search is a free-text query evaluated against a bounded set of
	// fields: customer name, phone number, vehicle, source and the name of
	// the claiming agent.
	Search string
}

// Matches evaluates the filter against a merged lead row, never against raw
// feed events, so rows enter and leave the visible snapshot the moment their
// merged state changes.
func (f SnapshotFilter) Matches(lead *model.Lead) bool {
	if f.Claimed != nil && lead.Claimed != *f.Claimed {
		return false
	}

	if f.Search == "" {
		return true
	}

	for _, field := range []string{
		lead.CustomerName,
		lead.PhoneNumber,
		lead.Vehicle,
		lead.Source,
		lead.ClaimedByName,
	} {
		if partialMatch(field, f.Search, searchDrift) {
			return true
		}
	}
	return false
}

// partialMatch reports whether two strings match case-insensitively, either
// by containment or within an allowable levenshtein drift expressed as a
// percentage of the longer string.
func partialMatch(str1, str2 string, allowableDrift float64) bool {
	if str1 == "" || str2 == "" {
		return false
	}

	str1 = strings.ToLower(str1)
	str2 = strings.ToLower(str2)

	if strings.Contains(str1, str2) || strings.Contains(str2, str1) {
		return true
	}

	distance := levenshtein.DistanceForStrings([]rune(str1), []rune(str2), levenshtein.DefaultOptions)

	maxLength := len(str1)
	if len(str2) > maxLength {
		maxLength = len(str2)
	}
	maxAllowedDistance := int(float64(maxLength) * (allowableDrift / 100))

	return distance <= maxAllowedDistance
}
