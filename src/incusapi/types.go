package incusapi

// ServerInfo exposes key server metadata we care about.
type ServerInfo struct {
	ServerVersion string
}

// Client is a narrow interface over the Incus API used by the bridge.
// Keep it small and focused on what we actually need so it stays mockable.
type Client interface {
	// Server
	Server() (ServerInfo, error)

	// Custom volume snapshots
	CreateVolumeSnapshot(project, pool, volume, snapshot string) error
	DeleteVolumeSnapshot(project, pool, volume, snapshot string) error
}
