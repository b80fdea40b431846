package rostergen

import "time"

// Config holds configuration for a generation run
type Config struct {
	BaseURL    string        // Base URL of the service
	NumRosters int           // Number of rosters to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputDir  string        // Directory for generated roster files, empty = don't save
	LogFile    string        // Log file for run output
	Zipped     bool          // Emit .rosz archives instead of bare XML
	Verbose    bool          // Enable verbose logging
}

// Roster is one generated BattleScribe export ready for submission
type Roster struct {
	Name     string // roster name attribute
	Filename string // upload filename, carries the .ros/.rosz extension
	Army     string // archetype label, for logging
	Data     []byte
}

// evaluationResponse mirrors the parts of the /evaluate payload the run
// inspects
type evaluationResponse struct {
	Roster struct {
		FactionIDs []string `json:"faction_ids"`
		Units      []struct {
			ID string `json:"id"`
		} `json:"units"`
	} `json:"roster"`
	SnapshotVersion string `json:"snapshot_version"`
	Stratagems      []struct {
		ID    string `json:"id"`
		Phase string `json:"phase"`
	} `json:"stratagems"`
	Diagnostics struct {
		UnresolvedFactions   []string `json:"unresolved_factions"`
		UnresolvedRenames    []string `json:"unresolved_renames"`
		UnitsWithoutKeywords []string `json:"units_without_keywords"`
	} `json:"diagnostics"`
}

// errorBody mirrors the service error payload
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// snapshotBody mirrors the /snapshot payload
type snapshotBody struct {
	Version    string `json:"version"`
	Stratagems int    `json:"stratagems"`
	Factions   int    `json:"factions"`
}

// Stats holds run statistics
type Stats struct {
	RostersGenerated    int
	RostersSubmitted    int
	RostersSuccessful   int
	RostersRejected     int
	RostersFailed       int
	StratagemsMatched   int
	UnresolvedFactions  int
	UnitsWithoutKeyword int
	SnapshotVersion     string
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
