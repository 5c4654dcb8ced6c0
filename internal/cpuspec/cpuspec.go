// Package cpuspec picks an interpreter thread count from the CPU model.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PerformanceCores int // 0 when the model is not in the tables
	PhysicalCores    int
	LogicalCores     int
}

// GetCPUSpec describes the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		PerformanceCores: determinePerformanceCores(cpuid.CPU.BrandName),
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		LogicalCores:     cpuid.CPU.LogicalCores,
	}
}

// GetOptimalThreadCount prefers performance cores on hybrid CPUs, then
// physical cores, and never exceeds the CPUs visible to the process.
func (c CPUSpec) GetOptimalThreadCount() int {
	available := runtime.NumCPU()

	var n int
	switch {
	case c.PerformanceCores > 0:
		n = c.PerformanceCores
	case c.PhysicalCores > 0:
		n = c.PhysicalCores
	case c.LogicalCores > 0:
		n = c.LogicalCores
	default:
		n = available
	}
	return max(1, min(n, available))
}

// ThreadCount resolves a configured thread count: 0 means detect, larger
// values are capped at the number of CPUs.
func ThreadCount(configured int) int {
	if configured <= 0 {
		return GetCPUSpec().GetOptimalThreadCount()
	}
	return min(configured, runtime.NumCPU())
}

var (
	intelCoreRegex  = regexp.MustCompile(`intel.*core.*i[3579]-(1[234]\d)00`)
	intelUltraRegex = regexp.MustCompile(`intel.*core.*ultra\s+[579]\s+(?:processor\s+)?(\d{3})`)
	appleRegex      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// Performance core counts of hybrid Intel parts, keyed by model prefix
var intelPerformanceCores = map[string]int{
	"129": 8, "127": 8, "126": 6, "124": 6, "121": 4,
	"139": 8, "137": 8, "136": 6, "135": 6, "134": 6, "131": 4,
	"149": 8, "147": 8, "146": 6, "144": 6, "141": 4,
}

var intelUltraPerformanceCores = map[string]int{
	"285": 8, "265": 8, "255": 8, "245": 6, "235": 6, "225": 4,
}

// Apple pro variants ship with fewer cores in binned parts; the larger count is used
var applePerformanceCores = map[string]int{
	"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
	"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
	"m3": 4, "m3 pro": 6, "m3 max": 12, "m3 ultra": 24,
	"m4": 4, "m4 pro": 10, "m4 max": 12,
}

func determinePerformanceCores(brandName string) int {
	brand := strings.ToLower(brandName)

	if m := intelUltraRegex.FindStringSubmatch(brand); m != nil {
		return intelUltraPerformanceCores[m[1]]
	}
	if m := intelCoreRegex.FindStringSubmatch(brand); m != nil {
		return intelPerformanceCores[m[1]]
	}
	if m := appleRegex.FindStringSubmatch(brand); m != nil {
		return applePerformanceCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
