package pci

// ConfigAccessor is the raw configuration-space transport. Register
// arguments are byte offsets into the device's config space. Accesses
// are synchronous; retries and timeouts are the transport's concern,
// not the caller's.
type ConfigAccessor interface {
	ReadU8(loc Location, reg uint16) (uint8, error)
	ReadU16(loc Location, reg uint16) (uint16, error)
	ReadU32(loc Location, reg uint16) (uint32, error)
	WriteU32(loc Location, reg uint16, val uint32) error

	// ReadSpace reads a full config space snapshot for loc. The
	// snapshot's Size reflects how much the transport can see (256
	// bytes for legacy transports, 4096 for ECAM-style ones).
	ReadSpace(loc Location) (*ConfigSpace, error)
}

// BARSizer is implemented by transports that can report BAR layout
// without the all-ones write probe. Scans prefer it when present:
// writing to live BAR registers is unsafe while a driver owns the
// device.
type BARSizer interface {
	SizeBARs(loc Location) ([]BAR, error)
}
