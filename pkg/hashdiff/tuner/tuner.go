// Package tuner detects system resources and derives the hash worker pool
// size and queue depth used by the scanner.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available RAM in bytes. It may be an estimate.
	AvailableRAM int64
}

// defaultTotalRAM is the fallback total RAM value when detection fails.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Fallback returns conservative resources for when detection fails.
func Fallback(cpus int) SystemResources {
	return SystemResources{
		CPUCores:     max(cpus, 1),
		TotalRAM:     defaultTotalRAM,
		AvailableRAM: defaultTotalRAM / 2,
	}
}
