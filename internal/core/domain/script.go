package domain

// HookScript is one discovered executable entry in a hook-point directory.
type HookScript struct {
	// Name is the file base name; it is also the ordering key.
	Name string

	// Path is the absolute path to the script.
	Path string
}

// Fingerprint is the content digest record for one hook script.
type Fingerprint struct {
	// Checksum is the hex digest of the script content, or empty when the
	// file does not exist.
	Checksum string `json:"checksum"`
}

// EntityConfig carries the identity and the operator-declared custom
// parameters of the entity (VM) a pipeline run is executed for.
type EntityConfig struct {
	// ID is the entity identifier, exported to scripts as vmId when set.
	ID string

	// Custom is the configuration-declared parameter map. On key collision
	// with caller-supplied parameters, these values win.
	Custom map[string]string
}

// Launch flag values understood by the host manager.
const (
	// LaunchFlagNone requests a plain start.
	LaunchFlagNone = 0

	// LaunchFlagStartPaused requests the entity be started paused.
	LaunchFlagStartPaused = 1
)
