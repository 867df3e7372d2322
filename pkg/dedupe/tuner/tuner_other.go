//go:build !darwin

package tuner

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/mem"
)

// defaultTotalRAM is used when memory detection fails.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Detect detects available system resources (CPU and RAM).
// Memory figures come from gopsutil; on failure an 8GB estimate is returned
// together with the error.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     defaultTotalRAM,
		AvailableRAM: defaultTotalRAM / 2,
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return resources, fmt.Errorf("reading virtual memory: %w", err)
	}

	resources.TotalRAM = int64(vm.Total)
	resources.AvailableRAM = int64(vm.Available)
	return resources, nil
}
