//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources using sysctl hw.memsize.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	// Get total physical memory using sysctl
	totalRAM, err := getTotalRAM()
	if err != nil {
		return resources, fmt.Errorf("failed to get total RAM: %w", err)
	}
	resources.TotalRAM = totalRAM

	// Get available memory
	availableRAM, err := getAvailableRAM(totalRAM)
	if err != nil {
		return resources, fmt.Errorf("failed to get available RAM: %w", err)
	}
	resources.AvailableRAM = availableRAM

	return resources, nil
}

// getTotalRAM retrieves the total physical memory on darwin using sysctl.
func getTotalRAM() (int64, error) {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}

	return int64(memsize), nil
}

// getAvailableRAM estimates available memory as half of total. Precise
// figures need vm_stat parsing, and the estimate only sizes event buffers
// and flags low memory systems.
func getAvailableRAM(totalRAM int64) (int64, error) {
	return totalRAM / 2, nil
}
