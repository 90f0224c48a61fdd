package tuner

// Worker configuration limits.
const (
	// maxWorkers caps the hash worker pool.
	maxWorkers = 64

	// minWorkers is the smallest pool, used even on single-core systems so
	// one slow file does not stall the scan.
	minWorkers = 4

	// minQueueSize is the minimum path queue size.
	minQueueSize = 64

	// maxQueueSize is the maximum path queue size.
	maxQueueSize = 65536
)

// Memory-based queue sizing constants.
const (
	// bytesPerQueueEntry estimates memory per queued path.
	bytesPerQueueEntry = 512

	// queueMemoryFraction is the fraction of available RAM used for the queue.
	queueMemoryFraction = 0.01
)

// OptimalConfig contains the tuned scanner configuration.
type OptimalConfig struct {
	// HashWorkers is the number of goroutines reading and hashing files.
	HashWorkers int

	// QueueSize is the buffer size of the path queue feeding the workers.
	QueueSize int
}

// Calculate returns the configuration for the given resources.
//
// Hashing mixes CPU (three digests) and blocking reads, so the pool is
// NumCPU*2, at least minWorkers and at most maxWorkers.
func Calculate(resources SystemResources) OptimalConfig {
	workers := resources.CPUCores * 2
	workers = max(workers, minWorkers)
	workers = min(workers, maxWorkers)

	return OptimalConfig{
		HashWorkers: workers,
		QueueSize:   calculateQueueSize(resources.AvailableRAM),
	}
}

// CalculateWithOverrides applies a user worker override to the calculated
// config. Values <= 0 keep the calculated count.
func CalculateWithOverrides(resources SystemResources, workerOverride int) OptimalConfig {
	config := Calculate(resources)
	if workerOverride > 0 {
		config.HashWorkers = min(workerOverride, maxWorkers)
	}
	return config
}

// calculateQueueSize determines queue size based on available memory.
func calculateQueueSize(availableRAM int64) int {
	entries := int(float64(availableRAM) * queueMemoryFraction / bytesPerQueueEntry)
	entries = max(entries, minQueueSize)
	return min(entries, maxQueueSize)
}
