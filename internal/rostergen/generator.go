package rostergen

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/xml"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/muster/pkg/logger"
)

// Export format constants.
const (
	schemaVersion  = "2.03"
	gameSystemName = "Warhammer 40,000 10th Edition"
	rosterXMLNS    = "http://www.battlescribe.net/schema/rosterSchema"

	selectionTypeUnit    = "unit"
	selectionTypeModel   = "model"
	selectionTypeUpgrade = "upgrade"

	factionCategoryPrefix = "Faction: "
)

// Constants for archetype selection. The roll is an eight-sided pick,
// mirroring the army mix of real event uploads: marines dominate, and one
// face lands on a homebrew army that exercises the diagnostics path.
const (
	archetypeDivisor = 8

	caseStrikeForce  = 0
	caseStrikeForce2 = 1
	caseWaaagh       = 2
	caseWaaagh2      = 3
	caseSwarm        = 4
	caseGuardMuster  = 5
	caseKindred      = 6
	caseHomebrew     = 7
)

// Odds for optional list entries.
const (
	altNameOdds = 4 // 1-in-4 entries use an alternate export name
	dropOdds    = 2 // 1-in-2 optional entries are dropped
)

// xml document shapes for the generated export.
type genRoster struct {
	XMLName             xml.Name   `xml:"roster"`
	ID                  string     `xml:"id,attr"`
	Name                string     `xml:"name,attr"`
	BattleScribeVersion string     `xml:"battleScribeVersion,attr"`
	GameSystemName      string     `xml:"gameSystemName,attr"`
	XMLNS               string     `xml:"xmlns,attr"`
	Forces              []genForce `xml:"forces>force"`
}

type genForce struct {
	ID            string         `xml:"id,attr"`
	Name          string         `xml:"name,attr"`
	CatalogueName string         `xml:"catalogueName,attr"`
	Selections    []genSelection `xml:"selections>selection"`
}

type genSelection struct {
	ID         string         `xml:"id,attr"`
	Name       string         `xml:"name,attr"`
	Type       string         `xml:"type,attr"`
	Number     int            `xml:"number,attr"`
	Categories []genCategory  `xml:"categories>category,omitempty"`
	Selections []genSelection `xml:"selections>selection,omitempty"`
}

type genCategory struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Primary bool   `xml:"primary,attr"`
}

// archetype describes one army shape the generator can emit.
type archetype struct {
	label       string
	catalogues  []string // candidate force catalogueName values
	detachments []string // candidate detachment picks, empty = none declared
	units       []unitTemplate
}

// unitTemplate describes one selection entry of an archetype.
type unitTemplate struct {
	name       string   // selection name as exported
	altNames   []string // occasional substitutes, exercises rename resolution
	kind       string   // selection type: model or unit
	body       string   // rank-and-file model name for unit entries
	leader     string   // leader model name, empty = none
	categories []string // category names; "Faction: X" entries set the hint
	minModels  int      // inclusive model spread for unit entries
	maxModels  int
	maxCopies  int  // 1..maxCopies copies of this entry
	optional   bool // entry may be dropped entirely
}

var strikeForce = archetype{
	label: "strike force",
	catalogues: []string{
		"Imperium - Space Marines",
		"Imperium - Ultramarines",
		"Imperium - Salamanders",
		"Imperium - Black Templars",
	},
	detachments: []string{"Gladius Task Force", "Anvil Siege Force", "Firestorm Assault Force"},
	units: []unitTemplate{
		{
			name:       "Captain",
			altNames:   []string{"Chapter Master"},
			kind:       selectionTypeModel,
			categories: []string{"Faction: Adeptus Astartes", "Character", "Infantry", "Imperium"},
			maxCopies:  1,
		},
		{
			name:       "Captain in Gravis Armour",
			altNames:   []string{"Chapter Master in Gravis Armour"},
			kind:       selectionTypeModel,
			categories: []string{"Faction: Adeptus Astartes", "Character", "Infantry", "Imperium"},
			maxCopies:  1,
			optional:   true,
		},
		{
			name:       "Intercessor Squad",
			kind:       selectionTypeUnit,
			body:       "Intercessor",
			leader:     "Intercessor Sergeant",
			categories: []string{"Faction: Adeptus Astartes", "Battleline", "Infantry", "Imperium"},
			minModels:  5,
			maxModels:  10,
			maxCopies:  3,
		},
		{
			name:       "Redemptor Dreadnought",
			kind:       selectionTypeModel,
			categories: []string{"Faction: Adeptus Astartes", "Vehicle", "Walker", "Imperium"},
			maxCopies:  1,
			optional:   true,
		},
	},
}

var waaagh = archetype{
	label:       "waaagh",
	catalogues:  []string{"Orks"},
	detachments: []string{"War Horde"},
	units: []unitTemplate{
		{
			name:       "Warboss",
			kind:       selectionTypeModel,
			categories: []string{"Faction: Orks", "Character", "Infantry"},
			maxCopies:  1,
		},
		{
			name:       "Boyz",
			kind:       selectionTypeUnit,
			body:       "Boy",
			leader:     "Boss Nob",
			categories: []string{"Faction: Orks", "Battleline", "Infantry", "Mob", "Boyz"},
			minModels:  10,
			maxModels:  20,
			maxCopies:  3,
		},
	},
}

var swarm = archetype{
	label:       "swarm",
	catalogues:  []string{"Tyranids"},
	detachments: []string{"Invasion Fleet"},
	units: []unitTemplate{
		{
			name:       "Hive Tyrant",
			kind:       selectionTypeModel,
			categories: []string{"Faction: Tyranids", "Character", "Monster", "Synapse"},
			maxCopies:  1,
		},
		{
			name:       "Hormagaunts",
			kind:       selectionTypeUnit,
			body:       "Hormagaunt",
			categories: []string{"Faction: Tyranids", "Battleline", "Infantry", "Endless Multitude"},
			minModels:  10,
			maxModels:  20,
			maxCopies:  3,
		},
	},
}

var guardMuster = archetype{
	label:       "guard muster",
	catalogues:  []string{"Imperium - Astra Militarum"},
	detachments: []string{"Combined Regiment"},
	units: []unitTemplate{
		{
			name:       "Cadian Shock Troops",
			kind:       selectionTypeUnit,
			body:       "Shock Trooper",
			leader:     "Shock Trooper Sergeant",
			categories: []string{"Faction: Astra Militarum", "Battleline", "Infantry", "Regiment", "Imperium"},
			minModels:  10,
			maxModels:  20,
			maxCopies:  3,
		},
		{
			name:       "Leman Russ Battle Tank",
			kind:       selectionTypeModel,
			categories: []string{"Faction: Astra Militarum", "Vehicle", "Regiment", "Imperium"},
			maxCopies:  2,
			optional:   true,
		},
	},
}

var kindred = archetype{
	label:       "kindred",
	catalogues:  []string{"Leagues of Votann"},
	detachments: []string{"Oathband"},
	units: []unitTemplate{
		{
			name:       "Hearthkyn Warriors",
			altNames:   []string{"Hearthkyn Warriors w/ bolters", "Hearthkyn Warriors w/ ion blasters"},
			kind:       selectionTypeUnit,
			body:       "Hearthkyn Warrior",
			leader:     "Theyn",
			categories: []string{"Faction: Leagues of Votann", "Battleline", "Infantry"},
			minModels:  10,
			maxModels:  10,
			maxCopies:  2,
		},
		{
			name:       "Einhyr Hearthguard",
			kind:       selectionTypeUnit,
			body:       "Einhyr Hearthguard",
			leader:     "Hesyr",
			categories: []string{"Faction: Leagues of Votann", "Infantry"},
			minModels:  5,
			maxModels:  10,
			maxCopies:  1,
			optional:   true,
		},
	},
}

// homebrew armies resolve no faction and ship a unit with no categories at
// all, which keeps the diagnostics path under load too.
var homebrew = archetype{
	label:      "homebrew",
	catalogues: []string{"Renegade Raiders", "Void Corsair Fleet"},
	units: []unitTemplate{
		{
			name:       "Void Corsairs",
			kind:       selectionTypeUnit,
			body:       "Corsair",
			categories: []string{"Infantry"},
			minModels:  5,
			maxModels:  10,
			maxCopies:  2,
		},
		{
			name:      "Pirate King",
			kind:      selectionTypeModel,
			maxCopies: 1,
		},
	},
}

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateRosters creates the configured number of rosters concurrently.
func generateRosters(ctx context.Context, config *Config, stats *Stats) ([]Roster, error) {
	logger.Get().Info(ctx, "generating rosters", logger.Int("numRosters", config.NumRosters))

	rosters := make([]Roster, config.NumRosters)

	type rosterResult struct {
		index  int
		roster Roster
		err    error
	}

	resultChan := make(chan rosterResult, config.NumRosters)

	// Use worker pool for roster generation
	workerCount := minInt(config.Workers, config.NumRosters)
	if workerCount < 1 {
		workerCount = 1
	}
	rostersPerWorker := config.NumRosters / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * rostersPerWorker
		end := start + rostersPerWorker
		if worker == workerCount-1 {
			end = config.NumRosters // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- rosterResult{index: i, err: ctx.Err()}
					return
				default:
					r, err := generateSingleRoster(i, config.Zipped)
					resultChan <- rosterResult{index: i, roster: r, err: err}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumRosters; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during roster generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate roster %d: %w", result.index, result.err)
			}
			rosters[result.index] = result.roster
		}
	}

	stats.RostersGenerated = len(rosters)
	logger.Get().Info(ctx, "generated rosters successfully", logger.Int("count", len(rosters)))

	return rosters, nil
}

// generateSingleRoster builds one export with the given sequence number.
func generateSingleRoster(index int, zipped bool) (Roster, error) {
	return renderRoster(pickArchetype(), index, zipped)
}

// renderRoster builds one export for a fixed archetype.
func renderRoster(arch archetype, index int, zipped bool) (Roster, error) {
	catalogue := arch.catalogues[randomInt(len(arch.catalogues))]

	doc := genRoster{
		ID:                  uuid.New().String(),
		Name:                fmt.Sprintf("%s #%d", arch.label, index+1),
		BattleScribeVersion: schemaVersion,
		GameSystemName:      gameSystemName,
		XMLNS:               rosterXMLNS,
	}

	force := genForce{
		ID:            uuid.New().String(),
		Name:          "Army Roster",
		CatalogueName: catalogue,
	}

	if len(arch.detachments) > 0 {
		force.Selections = append(force.Selections, genSelection{
			ID:     uuid.New().String(),
			Name:   "Detachment",
			Type:   selectionTypeUpgrade,
			Number: 1,
			Selections: []genSelection{{
				ID:     uuid.New().String(),
				Name:   arch.detachments[randomInt(len(arch.detachments))],
				Type:   selectionTypeUpgrade,
				Number: 1,
			}},
		})
	}

	for _, tmpl := range arch.units {
		if tmpl.optional && randomInt(dropOdds) == 0 {
			continue
		}
		copies := 1 + randomInt(tmpl.maxCopies)
		for c := 0; c < copies; c++ {
			force.Selections = append(force.Selections, buildSelection(tmpl))
		}
	}

	doc.Forces = []genForce{force}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Roster{}, fmt.Errorf("failed to marshal roster %d: %w", index, err)
	}
	data = append([]byte(xml.Header), data...)

	slug := strings.ReplaceAll(arch.label, " ", "-")
	roster := Roster{
		Name: doc.Name,
		Army: arch.label,
		Data: data,
	}

	if zipped {
		roster.Filename = fmt.Sprintf("%s-%04d.rosz", slug, index+1)
		packed, err := buildArchive(fmt.Sprintf("%s-%04d.ros", slug, index+1), data)
		if err != nil {
			return Roster{}, fmt.Errorf("failed to pack roster %d: %w", index, err)
		}
		roster.Data = packed
		return roster, nil
	}

	roster.Filename = fmt.Sprintf("%s-%04d.ros", slug, index+1)
	return roster, nil
}

// pickArchetype rolls the archetype table.
func pickArchetype() archetype {
	switch randomInt(archetypeDivisor) {
	case caseStrikeForce, caseStrikeForce2:
		return strikeForce
	case caseWaaagh, caseWaaagh2:
		return waaagh
	case caseSwarm:
		return swarm
	case caseGuardMuster:
		return guardMuster
	case caseKindred:
		return kindred
	case caseHomebrew:
		return homebrew
	default:
		return strikeForce
	}
}

// buildSelection instantiates one entry from its template.
func buildSelection(tmpl unitTemplate) genSelection {
	name := tmpl.name
	if len(tmpl.altNames) > 0 && randomInt(altNameOdds) == 0 {
		name = tmpl.altNames[randomInt(len(tmpl.altNames))]
	}

	sel := genSelection{
		ID:     uuid.New().String(),
		Name:   name,
		Type:   tmpl.kind,
		Number: 1,
	}

	primarySet := false
	for _, cat := range tmpl.categories {
		entry := genCategory{ID: uuid.New().String(), Name: cat}
		if !strings.HasPrefix(cat, factionCategoryPrefix) && !primarySet {
			entry.Primary = true
			primarySet = true
		}
		sel.Categories = append(sel.Categories, entry)
	}

	if tmpl.kind == selectionTypeUnit {
		models := tmpl.minModels
		if tmpl.maxModels > tmpl.minModels {
			models += randomInt(tmpl.maxModels - tmpl.minModels + 1)
		}
		if models < 1 {
			models = 1
		}
		if tmpl.leader != "" && models > 1 {
			sel.Selections = append(sel.Selections,
				genSelection{ID: uuid.New().String(), Name: tmpl.body, Type: selectionTypeModel, Number: models - 1},
				genSelection{ID: uuid.New().String(), Name: tmpl.leader, Type: selectionTypeModel, Number: 1},
			)
		} else {
			sel.Selections = append(sel.Selections,
				genSelection{ID: uuid.New().String(), Name: tmpl.body, Type: selectionTypeModel, Number: models},
			)
		}
	}

	return sel
}

// buildArchive wraps the XML bytes in a single-member .rosz zip.
func buildArchive(member string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(member)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
