package helpers

// fallbackMemoryMB is used when physical memory cannot be determined.
const fallbackMemoryMB = 512

// RecommendedMemoryLimitMB is the soft heap limit used when none is
// configured: 75% of physical RAM, never below 512MB unless the host has less.
func RecommendedMemoryLimitMB() int {
	return recommendedLimit(TotalSystemMemoryMB())
}

// -----------------------------------------------------------------------------

func recommendedLimit(totalMB int) int {
	if totalMB <= 0 {
		return fallbackMemoryMB
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < fallbackMemoryMB {
		if totalMB < fallbackMemoryMB {
			return totalMB
		}
		return fallbackMemoryMB
	}
	return limit
}
