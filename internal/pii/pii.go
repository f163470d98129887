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

// Package pii masks customer identifiers before they reach logs or outbound
// notifications. Full values live only in the record store.
package pii

import "strings"

const maskRune = '*'

// MaskPhone hides all but the last two digits of a phone number, keeping the
// original length and any leading plus so the shape stays recognizable.
func MaskPhone(phone string) string {
	if phone == "" {
		return ""
	}

	runes := []rune(phone)
	keep := 2
	masked := make([]rune, len(runes))
	for i, r := range runes {
		if i == 0 && r == '+' {
			masked[i] = r
			continue
		}
		if i >= len(runes)-keep {
			masked[i] = r
			continue
		}
		masked[i] = maskRune
	}
	return string(masked)
}

// MaskName keeps the first letter of each word. "Morgan Hale" becomes
// "M***** H***".
func MaskName(name string) string {
	if name == "" {
		return ""
	}

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		for j := 1; j < len(runes); j++ {
			runes[j] = maskRune
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
