package models

import "time"

const (
	// redis key the reconciler writes its last per-guild sweep summary to
	Redis_Key_BoostRole_Sweep = "boostrole:sweep:last:%s"
)

// Rest_BoostRole is the wire form of a tracked role served by the REST API.
type Rest_BoostRole struct {
	EntryID   string
	RoleID    string
	UserID    string
	RoleName  string
	Color     string
	CreatedAt time.Time
}

// SweepSummary is cached in redis after every guild sweep and served by the REST API.
type SweepSummary struct {
	GuildID      string
	SweptAt      time.Time
	TrackedRoles int
	RemovedUsers []string
	Recreated    bool
}
