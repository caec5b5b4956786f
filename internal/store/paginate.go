package store

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ClampLimit maps a requested page size onto [1, MaxPageLimit], 0 meaning the default.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

// Page returns the slice of items that follows the item whose id equals cursor.
// An empty or unknown cursor starts from the first item. next is the id of the
// last returned item when more items follow, otherwise nil.
func Page[T any](items []T, cursor string, limit int, id func(T) string) (page []T, next *string) {
	limit = ClampLimit(limit)

	start := 0
	if cursor != "" {
		for i, item := range items {
			if id(item) == cursor {
				start = i + 1
				break
			}
		}
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	page = make([]T, end-start)
	copy(page, items[start:end])
	if end < len(items) && end > start {
		last := id(items[end-1])
		next = &last
	}
	return page, next
}
