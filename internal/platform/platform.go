package platform

// RemoveMethod identifies which syscall strategy removes entries.
type RemoveMethod int

const (
	Portable RemoveMethod = iota // os.Remove
	Unlinkat                     // unlinkat(2) with AT_FDCWD
)

func (m RemoveMethod) String() string {
	switch m {
	case Portable:
		return "os_remove"
	case Unlinkat:
		return "unlinkat"
	default:
		return "unknown"
	}
}
