package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for user names and group/payment titles.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsUserID reports whether id appears in ids.
func ContainsUserID(ids []UserID, id UserID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
