package config

import "github.com/shirou/gopsutil/v4/mem"

// DetectTotalMemGB returns total physical RAM in GiB, for feeding
// coordinator.DetectTier's auto-detection (spec §4.3). The standard
// library has no portable way to query total system memory, so this
// is the one place the config package reaches past it.
func DetectTotalMemGB() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	const bytesPerGB = 1 << 30
	return float64(vm.Total) / bytesPerGB, nil
}
