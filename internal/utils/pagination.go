// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes untrusted page/limit values: page is at least 1 and
// limit falls back to def when non-positive and is capped at max.
func ClampPage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

// PageBounds returns the half-open slice bounds [from, to) of page within a
// list of total items, using from = (page-1)*limit. Pages past the end yield
// from == to == total.
func PageBounds(page, limit, total int) (from, to int) {
	if page < 1 || limit < 1 || total <= 0 {
		return 0, 0
	}
	from = (page - 1) * limit
	if from > total || from < 0 {
		return total, total
	}
	to = from + limit
	if to > total {
		to = total
	}
	return from, to
}

// ParseID parses a positive integer id. It reports false for empty,
// malformed, zero or negative input.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
