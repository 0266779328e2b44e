/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package normalization

import (
	"regexp"
	"strings"
	"unicode"
)

// Version tags the normalization rule set. Changing these rules can cascade
// into re-clustering, so every rule change must bump this value and the new
// run must be reviewed against the verifier baseline.
const Version = "v1"

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unitRegex       = regexp.MustCompile(`\b(\d+(?:[.,]\d+)?)\s*(kg|g|gm|gr|l|lt|lit|ltr|ml|pcs|pc|pack|pkt)\b`)
)

// unitAliases folds unit token spellings into one canonical form.
var unitAliases = map[string]string{
	"kg":   "kg",
	"g":    "g",
	"gm":   "g",
	"gr":   "g",
	"l":    "l",
	"lt":   "l",
	"lit":  "l",
	"ltr":  "l",
	"ml":   "ml",
	"pcs":  "pc",
	"pc":   "pc",
	"pack": "pack",
	"pkt":  "pack",
}

// Normalize canonicalizes a raw product name into a comparable key. It is a
// pure function: the same input always yields the same key within one rule
// version. It never fails; malformed input falls back to a best-effort
// lowercase, trim and strip-punctuation transform which may produce an
// empty key.
func Normalize(rawName string) string {
	s := strings.ToLower(strings.TrimSpace(rawName))
	s = whitespaceRegex.ReplaceAllString(s, " ")

	// Canonicalize unit tokens before stripping punctuation so "1 Kg" and
	// "(1kg)" collapse to the same token.
	s = unitRegex.ReplaceAllStringFunc(s, func(m string) string {
		parts := unitRegex.FindStringSubmatch(m)
		value := strings.ReplaceAll(parts[1], ",", ".")
		return value + unitAliases[parts[2]]
	})

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens returns the comparable token set of a raw product name. Used by
// the matcher for token-overlap similarity; shares the cleanup rules with
// Normalize so the two views never disagree.
func Tokens(rawName string) []string {
	s := strings.ToLower(strings.TrimSpace(rawName))
	s = whitespaceRegex.ReplaceAllString(s, " ")

	var tokens []string
	for _, field := range strings.Fields(s) {
		var b strings.Builder
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
		}
	}
	return tokens
}
