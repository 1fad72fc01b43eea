//go:build !linux && !darwin && !windows

package helpers

func TotalSystemMemoryMB() int {
	return 0
}
