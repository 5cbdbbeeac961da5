package handler

import (
	"fmt"
	"strconv"
)

// parseLimit 解析分页条数，限制在 [1, 100]
func parseLimit(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("limit must be positive")
	}
	if n > 100 {
		n = 100
	}
	return n, nil
}
