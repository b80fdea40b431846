// Package roster parses BattleScribe roster exports into domain rosters.
// Both bare .ros XML documents and .rosz zip archives are accepted; the
// archive form is detected by content, not extension.
package roster

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/muster/internal/domain/model"
)

// SupportedSchema names the accepted BattleScribe export family.
const SupportedSchema = "2.x"

const (
	supportedSchemaMajor = "2"

	selectionTypeUnit  = "unit"
	selectionTypeModel = "model"

	factionCategoryPrefix   = "Faction: "
	detachmentSelectionName = "Detachment"
	syntheticUnitIDPrefix   = "unit-"
	zipMagic                = "PK\x03\x04"
)

// Selections whose names mark roster bookkeeping rather than units.
var defaultNonUnitNames = []string{
	"**Chapter Selector**",
	"Game Type",
	"Detachment Command Cost",
	"Battle Size",
	"Arks of Omen Compulsory Type",
	"Show/Hide Options",
}

// Parser turns roster export bytes into model.Roster values. It is a pure
// transform: no filesystem or network access beyond the given bytes.
type Parser struct {
	nonUnit map[string]struct{}
}

// NewParser creates a Parser with configuration options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		nonUnit: make(map[string]struct{}, len(defaultNonUnitNames)),
	}
	for _, n := range defaultNonUnitNames {
		p.nonUnit[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// xml document shapes. encoding/xml folds single and repeated elements into
// the same slice fields, which covers the one-force and many-force exports.
type xmlRoster struct {
	XMLName             xml.Name   `xml:"roster"`
	Name                string     `xml:"name,attr"`
	BattleScribeVersion string     `xml:"battleScribeVersion,attr"`
	Forces              []xmlForce `xml:"forces>force"`
}

type xmlForce struct {
	CatalogueName string         `xml:"catalogueName,attr"`
	Selections    []xmlSelection `xml:"selections>selection"`
}

type xmlSelection struct {
	ID         string         `xml:"id,attr"`
	Name       string         `xml:"name,attr"`
	Type       string         `xml:"type,attr"`
	Number     string         `xml:"number,attr"`
	Categories []xmlCategory  `xml:"categories>category"`
	Selections []xmlSelection `xml:"selections>selection"`
}

type xmlCategory struct {
	Name string `xml:"name,attr"`
}

// ParseFile parses a roster document, sniffing the archive form by content
// first and by the .rosz extension second.
func (p *Parser) ParseFile(ctx context.Context, name string, data []byte) (*model.Roster, error) {
	if bytes.HasPrefix(data, []byte(zipMagic)) || strings.HasSuffix(strings.ToLower(name), ".rosz") {
		inner, err := extractArchive(data)
		if err != nil {
			return nil, err
		}
		data = inner
	}
	return p.Parse(ctx, data)
}

// Parse parses a bare .ros XML document.
func (p *Parser) Parse(ctx context.Context, data []byte) (*model.Roster, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	// Archives are accepted here too so callers without a filename still work.
	if bytes.HasPrefix(data, []byte(zipMagic)) {
		inner, err := extractArchive(data)
		if err != nil {
			return nil, err
		}
		data = inner
	}

	var doc xmlRoster
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
	}

	if err := checkSchema(doc.BattleScribeVersion); err != nil {
		return nil, err
	}

	r := &model.Roster{
		Name:          doc.Name,
		SchemaVersion: doc.BattleScribeVersion,
	}

	seenTags := make(map[string]struct{}, len(doc.Forces))
	unitSeq := 0
	for _, force := range doc.Forces {
		if tag := strings.TrimSpace(force.CatalogueName); tag != "" {
			if _, dup := seenTags[tag]; !dup {
				seenTags[tag] = struct{}{}
				r.FactionTags = append(r.FactionTags, tag)
			}
		}
		p.walkSelections(force.Selections, force.CatalogueName, r, &unitSeq)
	}

	return r, nil
}

// walkSelections descends the selection tree collecting units and
// detachments. The walk does not descend into a unit: nested selections
// under a unit are wargear and model groups, not further units.
func (p *Parser) walkSelections(sels []xmlSelection, catalogue string, r *model.Roster, unitSeq *int) {
	for _, sel := range sels {
		if strings.EqualFold(strings.TrimSpace(sel.Name), detachmentSelectionName) {
			for _, pick := range sel.Selections {
				if name := strings.TrimSpace(pick.Name); name != "" {
					r.Detachments = append(r.Detachments, model.Detachment{Name: name})
				}
			}
			continue
		}
		if p.isUnit(sel) {
			*unitSeq++
			r.Units = append(r.Units, buildUnit(sel, catalogue, *unitSeq))
			continue
		}
		p.walkSelections(sel.Selections, catalogue, r, unitSeq)
	}
}

func (p *Parser) isUnit(sel xmlSelection) bool {
	if sel.Type != selectionTypeUnit && sel.Type != selectionTypeModel {
		return false
	}
	_, skipped := p.nonUnit[sel.Name]
	return !skipped
}

func buildUnit(sel xmlSelection, catalogue string, seq int) model.Unit {
	id := sel.ID
	if id == "" {
		id = syntheticUnitIDPrefix + strconv.Itoa(seq)
	}

	u := model.Unit{
		ID:        id,
		Name:      sel.Name,
		FactionID: strings.TrimSpace(catalogue),
		Models:    modelCount(sel),
	}

	seen := make(map[string]struct{}, len(sel.Categories))
	hintSet := false
	for _, cat := range sel.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(name, factionCategoryPrefix); ok {
			// The first faction category wins as the unit's faction hint.
			if !hintSet {
				u.FactionID = strings.TrimSpace(rest)
				hintSet = true
			}
			name = rest
		}
		kw := strings.ToUpper(strings.TrimSpace(name))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		u.Keywords = append(u.Keywords, kw)
	}

	return u
}

// modelCount derives the number of models in a unit selection: the
// selection's own @number for model entries, else the sum of nested model
// entries, else 1.
func modelCount(sel xmlSelection) int {
	if sel.Type == selectionTypeModel {
		if n := atoiOrZero(sel.Number); n > 0 {
			return n
		}
		return 1
	}
	n := sumNestedModels(sel.Selections)
	if n <= 0 {
		return 1
	}
	return n
}

func sumNestedModels(sels []xmlSelection) int {
	total := 0
	for _, sel := range sels {
		if sel.Type == selectionTypeModel {
			if n := atoiOrZero(sel.Number); n > 0 {
				total += n
			} else {
				total++
			}
			continue
		}
		total += sumNestedModels(sel.Selections)
	}
	return total
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// checkSchema validates the export version attribute against the supported
// family.
func checkSchema(version string) error {
	v := strings.TrimSpace(version)
	if v == "" {
		return &SchemaError{Detected: "", Supported: SupportedSchema}
	}
	major, _, _ := strings.Cut(v, ".")
	if major != supportedSchemaMajor {
		return &SchemaError{Detected: v, Supported: SupportedSchema}
	}
	return nil
}

// extractArchive returns the bytes of the first .ros member of a .rosz zip.
func extractArchive(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: bad archive: %s", ErrMalformedDocument, err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".ros") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: archive member %s: %s", ErrMalformedDocument, f.Name, err)
		}
		defer rc.Close() //nolint:errcheck // read-only member
		inner, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: archive member %s: %s", ErrMalformedDocument, f.Name, err)
		}
		return inner, nil
	}
	return nil, fmt.Errorf("%w: archive contains no .ros member", ErrMalformedDocument)
}
