package types

// ProcessRequest asks the registry to run recognition on one artifact.
type ProcessRequest struct {
	// Engine name, or "auto" (also the zero value) to let the selector pick.
	Engine string `json:"engine,omitempty"`
	// Artifact to process.
	Artifact Artifact `json:"artifact"`
	// Recognition mode; defaults to ModeText.
	Mode Mode `json:"mode,omitempty"`
	// Optional sub-region to restrict recognition to.
	Region *Region `json:"region,omitempty"`
}

// EngineAuto is the sentinel engine name that delegates selection to the
// adaptive selector.
const EngineAuto = "auto"

// ResidentResource summarizes one loaded resource for status reporting.
type ResidentResource struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	SizeBytes   uint64 `json:"size_bytes"`
	Device      string `json:"device"`
	Priority    int    `json:"priority"`
	AccessCount uint64 `json:"access_count"`
	IdleSeconds int64  `json:"idle_seconds"`
}

// PoolSnapshot is a read-only projection of the resource pool.
type PoolSnapshot struct {
	Stats         PoolStats          `json:"stats"`
	Resident      []ResidentResource `json:"resident"`
	UptimeSeconds int64              `json:"uptime_seconds"`
}
