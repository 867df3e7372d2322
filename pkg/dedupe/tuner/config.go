package tuner

// Worker configuration limits.
const (
	// maxWorkers is the maximum number of workers for any pool.
	maxWorkers = 64

	// minScanWorkers is the minimum number of fastwalk workers.
	minScanWorkers = 4

	// minHashWorkers keeps at least two reads in flight.
	minHashWorkers = 2

	// hashWorkersPerCPU scales the hash pool; hashing 8 KiB chunks spends
	// most of its time waiting on the disk.
	hashWorkersPerCPU = 2

	// lowMemory halves the hash pool below this much available RAM.
	lowMemory = 512 * 1024 * 1024
)

// Event buffer sizing.
const (
	minEventBuffer = 16
	maxEventBuffer = 1024

	// bytesPerEvent estimates a queued job event.
	bytesPerEvent = 4096

	// eventMemoryFraction is the fraction of available RAM given to
	// subscriber buffers.
	eventMemoryFraction = 0.0001
)

// OptimalConfig contains worker configuration tuned for the detected system.
type OptimalConfig struct {
	// ScanWorkers is the number of directory walking workers.
	ScanWorkers int

	// HashWorkers is the number of files hashed concurrently within a bucket.
	HashWorkers int

	// EventBuffer is the per-subscriber buffer of job events.
	EventBuffer int
}

// Calculate returns optimal configuration based on system resources.
//
//   - ScanWorkers: max(NumCPU, 4)
//   - HashWorkers: 2 x NumCPU, halved on low memory systems
//   - Both worker counts are capped at 64
func Calculate(resources SystemResources) OptimalConfig {
	cores := max(resources.CPUCores, 1)

	scanWorkers := min(max(cores, minScanWorkers), maxWorkers)

	hashWorkers := cores * hashWorkersPerCPU
	if resources.AvailableRAM > 0 && resources.AvailableRAM < lowMemory {
		hashWorkers /= 2
	}
	hashWorkers = min(max(hashWorkers, minHashWorkers), maxWorkers)

	return OptimalConfig{
		ScanWorkers: scanWorkers,
		HashWorkers: hashWorkers,
		EventBuffer: calculateEventBuffer(resources.AvailableRAM),
	}
}

// CalculateWithOverrides applies user overrides to the optimal config.
// Positive overrides replace the calculated value, still capped at 64.
func CalculateWithOverrides(resources SystemResources, scanOverride, hashOverride int) OptimalConfig {
	config := Calculate(resources)

	if scanOverride > 0 {
		config.ScanWorkers = min(scanOverride, maxWorkers)
	}
	if hashOverride > 0 {
		config.HashWorkers = min(hashOverride, maxWorkers)
	}

	return config
}

// Auto detects resources and applies overrides. Detection errors fall back
// to the partial resources Detect returned.
func Auto(scanOverride, hashOverride int) OptimalConfig {
	resources, _ := Detect()
	return CalculateWithOverrides(resources, scanOverride, hashOverride)
}

func calculateEventBuffer(availableRAM int64) int {
	entries := int(float64(availableRAM) * eventMemoryFraction / bytesPerEvent)
	return min(max(entries, minEventBuffer), maxEventBuffer)
}
