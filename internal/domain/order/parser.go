// Package order implements the quickbuy line parser and the sale pipeline
// that atomically debits a member and appends sale rows.
package order

import (
	"regexp"
	"strconv"
	"strings"

	"stregsystem/internal/core/apperror"
)

// itemRe matches one quickbuy item token: a product id with an optional
// ":count" multiplier.
var itemRe = regexp.MustCompile(`^(\d+)(?::(\d+))?$`)

// Parse splits a quickbuy line into the username and the expanded product
// id list, one id per unit ("14:3" contributes three 14s). A malformed line
// fails with a quickbuy error carrying the parsed prefix and the failed
// suffix, so the terminal can point at the first bad character. Product ids
// are not validated here.
func Parse(line string) (string, []int64, error) {
	start, end := tokenIndexes(line, 0)
	if start == -1 {
		return "", nil, apperror.NewQuickBuy(line[:0], line)
	}
	username := line[start:end]

	var ids []int64
	for end != len(line) {
		prevEnd := end
		start, end = tokenIndexes(line, end)
		if start == -1 {
			// trailing whitespace with no token behind it
			return "", nil, apperror.NewQuickBuy(line[:prevEnd], line[prevEnd:])
		}
		expanded, ok := item(line[start:end])
		if !ok {
			return "", nil, apperror.NewQuickBuy(line[:start], line[start:])
		}
		ids = append(ids, expanded...)
	}
	return username, ids, nil
}

// tokenIndexes finds the next whitespace-delimited token at or after
// startIndex. It returns (-1, -1) when only whitespace remains.
func tokenIndexes(s string, startIndex int) (int, int) {
	start := -1
	for i := startIndex; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			start = i
			break
		}
	}
	if start == -1 {
		return -1, -1
	}
	for i := start; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			return start, i
		}
	}
	return start, len(s)
}

func item(token string) ([]int64, bool) {
	m := itemRe.FindStringSubmatch(token)
	if m == nil {
		return nil, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	count := int64(1)
	if m[2] != "" {
		count, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, false
		}
	}
	out := make([]int64, 0, count)
	for i := int64(0); i < count; i++ {
		out = append(out, id)
	}
	return out, true
}

// AliasResolver maps a named-product alias to a product id. The bool
// result reports whether the alias exists.
type AliasResolver func(name string) (int64, bool)

// PreProcess rewrites named-product aliases in the item tokens to numeric
// product ids, leaving the username token and unknown words untouched. A
// token like "øl:3" keeps its count suffix.
func PreProcess(line string, resolve AliasResolver) string {
	items := strings.Split(line, " ")
	out := make([]string, 0, len(items))
	out = append(out, items[0])
	for _, it := range items[1:] {
		name := it
		if i := strings.IndexByte(it, ':'); i >= 0 {
			name = it[:i]
		}
		if id, ok := resolve(strings.ToLower(name)); ok {
			it = strings.Replace(it, name, strconv.FormatInt(id, 10), 1)
		}
		out = append(out, it)
	}
	return strings.Join(out, " ")
}
