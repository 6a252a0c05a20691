package hostpci

import (
	"fmt"
	"os"
)

// CheckSysfs verifies that the kernel exposes PCI devices under sysfs.
func CheckSysfs() error {
	entries, err := os.ReadDir(sysfsDevicesPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: kernel lacks PCI sysfs support", sysfsDevicesPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sysfsDevicesPath, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no PCI devices found in %s", sysfsDevicesPath)
	}
	return nil
}

// CheckPortIO verifies that the legacy port pair is reachable.
func CheckPortIO() error {
	f, err := os.OpenFile(portIOPath, os.O_RDWR, 0)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: port io config access requires an x86 host", portIOPath)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("no access to %s: run as root for port io config access", portIOPath)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", portIOPath, err)
	}
	f.Close()
	return nil
}

// CheckFullConfigAccess verifies that config space reads will not be
// truncated. Sysfs limits unprivileged readers to the first 64 bytes,
// which hides capability lists and bridge windows.
func CheckFullConfigAccess() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("running as uid %d: run as root to read config space beyond 64 bytes", os.Geteuid())
	}
	return nil
}

// CheckIOMMU verifies that the kernel put devices into IOMMU groups.
// Discovery works without one, so this only matters for passthrough
// setups inspecting their grouping.
func CheckIOMMU() error {
	entries, err := os.ReadDir("/sys/kernel/iommu_groups")
	if os.IsNotExist(err) {
		return fmt.Errorf("IOMMU not enabled: /sys/kernel/iommu_groups does not exist. " +
			"Enable IOMMU in BIOS and add 'intel_iommu=on' or 'amd_iommu=on' to kernel parameters")
	}
	if err != nil {
		return fmt.Errorf("failed to read IOMMU groups: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no IOMMU groups found: IOMMU may not be properly configured")
	}
	return nil
}
