package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterminePerformanceCores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		brand string
		want  int
	}{
		{"12th Gen Intel(R) Core(TM) i9-12900K", 8},
		{"13th Gen Intel(R) Core(TM) i5-13400F", 6},
		{"Intel(R) Core(TM) i3-14100", 4},
		{"Intel(R) Core(TM) Ultra 7 265K", 8},
		{"Intel(R) Core(TM) Ultra 5 processor 225", 4},
		{"Apple M1", 4},
		{"Apple M2 Max", 12},
		{"Apple M3  Ultra", 24},
		{"AMD Ryzen 9 7950X 16-Core Processor", 0},
		{"Intel(R) Core(TM) i7-9700K CPU @ 3.60GHz", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, determinePerformanceCores(tt.brand))
		})
	}
}

func TestGetOptimalThreadCountBounds(t *testing.T) {
	t.Parallel()

	n := runtime.NumCPU()
	assert.Equal(t, min(2, n), CPUSpec{PerformanceCores: 2, PhysicalCores: 16}.GetOptimalThreadCount())
	assert.Equal(t, min(3, n), CPUSpec{PhysicalCores: 3}.GetOptimalThreadCount())
	assert.Equal(t, n, CPUSpec{PerformanceCores: 4096}.GetOptimalThreadCount())
	assert.Equal(t, n, CPUSpec{}.GetOptimalThreadCount())
}

func TestThreadCount(t *testing.T) {
	t.Parallel()

	n := runtime.NumCPU()
	assert.Equal(t, 1, ThreadCount(1))
	assert.Equal(t, n, ThreadCount(n+100))
	got := ThreadCount(0)
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, n)
}
