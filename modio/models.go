package modio

// Mod represents a mod.io mod profile. Records are owned by the catalog cache
// after first insertion; everything the cache hands out is a pointer to the
// same underlying record, so field updates are visible to every holder.
type Mod struct {
	ID                   int        `json:"id"`
	Name                 string     `json:"name"`
	NameID               string     `json:"name_id"`
	DescriptionPlaintext string     `json:"description_plaintext"`
	Logo                 Logo       `json:"logo"`
	SubmittedBy          User       `json:"submitted_by"`
	DateUpdated          int64      `json:"date_updated"`
	HomepageURL          string     `json:"homepage_url"`
	ProfileURL           string     `json:"profile_url"`
	Platforms            []Platform `json:"platforms"`
	Dependencies         bool       `json:"dependencies"`
	Modfile              ModFile    `json:"modfile"`

	// Local-only state, never part of the wire payload.
	DependencyModIDs []int `json:"-"` // resolved dependency ids, empty until resolved
	Subscribed       bool  `json:"-"`
	LocalVersion     int   `json:"-"` // installed taint, 0 = not installed
	LocalBroken      bool  `json:"-"`
}

// PlatformTaint returns the live modfile id for the given platform, or 0 if
// the mod has no live file for that platform.
func (m *Mod) PlatformTaint(platform string) int {
	for _, p := range m.Platforms {
		if p.Platform == platform {
			return p.ModfileLive
		}
	}
	return 0
}

// UpdateAvailable reports whether the installed version is older than the
// live version for the given platform. Uninstalled mods never have updates.
func (m *Mod) UpdateAvailable(platform string) bool {
	if m.LocalVersion == 0 {
		return false
	}
	live := m.PlatformTaint(platform)
	return live != 0 && live != m.LocalVersion
}

// ModFile describes the binary artifact of a mod.
type ModFile struct {
	ID       int      `json:"id"`
	Filesize int64    `json:"filesize"`
	Filehash FileHash `json:"filehash"`
	Filename string   `json:"filename"`
	Version  string   `json:"version"`
	Download Download `json:"download"`
}

// FileHash holds the content hashes of a modfile.
type FileHash struct {
	MD5 string `json:"md5"`
}

// Download holds the download location of a modfile.
type Download struct {
	BinaryURL string `json:"binary_url"`
}

// Platform holds the per-platform live modfile marker.
type Platform struct {
	Platform    string `json:"platform"`
	ModfileLive int    `json:"modfile_live"`
}

// Logo holds the mod's logo image URLs.
type Logo struct {
	Filename     string `json:"filename"`
	Original     string `json:"original"`
	Thumb320x180 string `json:"thumb_320x180"`
}

// User represents the submitting mod.io user.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	NameID   string `json:"name_id"`
}

// Dependency is a single (parent, dependency) edge as returned by the
// dependencies endpoint. Consumed immediately to populate a Mod's
// DependencyModIDs and then discarded.
type Dependency struct {
	ModID       int    `json:"mod_id"`
	Name        string `json:"name"`
	DependDepth int    `json:"depend_depth"`
}

// Page is a single page of a paginated mod.io response.
type Page[T any] struct {
	Data         []T `json:"data"`
	ResultCount  int `json:"result_count"`
	ResultOffset int `json:"result_offset"`
	ResultLimit  int `json:"result_limit"`
	ResultTotal  int `json:"result_total"`
}
