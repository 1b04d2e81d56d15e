// Package common holds small generic helpers shared across packages.
package common

import "fmt"

// Renders every element with its String method, used for span attributes
func SliceToStringSlice[T fmt.Stringer](slice []T) []string {
	result := make([]string, len(slice))
	for i, val := range slice {
		result[i] = val.String()
	}

	return result
}
