package db

import (
	"gorm.io/gorm"
)

// InstalledMod represents an installed mod in the database
type InstalledMod struct {
	gorm.Model
	ModID      int    `gorm:"uniqueIndex"` // mod.io mod id
	Name       string // Mod name
	Taint      int    // Installed version marker
	Broken     bool   // Installed but invalid
	FileName   string // Archive file name the install came from
	Filesize   int64  // Archive size in bytes
	Subscribed bool   // Whether the user is subscribed to this mod
}

// InstallEvent represents a historical install or remove action
type InstallEvent struct {
	gorm.Model
	ModID    int    // References InstalledMod.ModID
	Action   string // "install" or "remove"
	Taint    int    // Version marker at the time of the event
	FileName string // Archive file name involved
	Error    string // Non-empty when the action failed
}
