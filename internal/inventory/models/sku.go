package models

import (
	"fmt"
	"strconv"
	"strings"
)

// NextSKU returns the SKU after last within prefix, formatted PREFIX-NNNN.
// An empty or unparseable last starts the sequence at 1.
func NextSKU(prefix, last string) string {
	n := 1
	if rest, ok := strings.CutPrefix(last, prefix+"-"); ok {
		if v, err := strconv.Atoi(rest); err == nil && v > 0 {
			n = v + 1
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, n)
}
