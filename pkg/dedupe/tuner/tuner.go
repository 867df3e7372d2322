// Package tuner sizes the scan and hash worker pools from the detected CPU
// count and memory.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available RAM in bytes. May be an estimate.
	AvailableRAM int64
}
