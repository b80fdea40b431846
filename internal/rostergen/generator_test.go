package rostergen

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	roster "github.com/okian/muster/internal/domain/roster"
	"github.com/okian/muster/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// Every generated export has to survive the real parser: the generator is
// only useful if the service accepts what it produces.
func TestRenderRoster_ParsesWithRosterParser(t *testing.T) {
	parser := roster.NewParser()
	ctx := context.Background()

	cases := []struct {
		arch        archetype
		minUnits    int
		detachments int
	}{
		{strikeForce, 2, 1},
		{waaagh, 2, 1},
		{swarm, 2, 1},
		{guardMuster, 1, 1},
		{kindred, 1, 1},
		{homebrew, 2, 0},
	}

	for _, tc := range cases {
		tc := tc
		Convey("Given the "+tc.arch.label+" archetype", t, func() {
			// Render a handful per archetype so the optional/alt-name
			// branches get exercised.
			for i := 0; i < 8; i++ {
				r, err := renderRoster(tc.arch, i, false)
				So(err, ShouldBeNil)
				So(r.Filename, ShouldEndWith, ".ros")
				So(r.Army, ShouldEqual, tc.arch.label)

				parsed, err := parser.ParseFile(ctx, r.Filename, r.Data)
				So(err, ShouldBeNil)
				So(parsed, ShouldNotBeNil)
				So(parsed.Name, ShouldEqual, r.Name)
				So(parsed.SchemaVersion, ShouldEqual, schemaVersion)
				So(len(parsed.FactionTags), ShouldEqual, 1)
				So(tc.arch.catalogues, ShouldContain, parsed.FactionTags[0])
				So(len(parsed.Units), ShouldBeGreaterThanOrEqualTo, tc.minUnits)
				So(len(parsed.Detachments), ShouldEqual, tc.detachments)

				for _, u := range parsed.Units {
					So(u.Name, ShouldNotBeBlank)
					So(u.Models, ShouldBeGreaterThanOrEqualTo, 1)
				}
			}
		})
	}
}

func TestRenderRoster_ModelCounts(t *testing.T) {
	Convey("Given a strike force export", t, func() {
		parser := roster.NewParser()
		ctx := context.Background()

		Convey("Squad sizes should land inside the template spread", func() {
			for i := 0; i < 16; i++ {
				r, err := renderRoster(strikeForce, i, false)
				So(err, ShouldBeNil)

				parsed, err := parser.ParseFile(ctx, r.Filename, r.Data)
				So(err, ShouldBeNil)

				squads := 0
				for _, u := range parsed.Units {
					if u.Name != "Intercessor Squad" {
						continue
					}
					squads++
					So(u.Models, ShouldBeGreaterThanOrEqualTo, 5)
					So(u.Models, ShouldBeLessThanOrEqualTo, 10)
				}
				So(squads, ShouldBeGreaterThanOrEqualTo, 1)
				So(squads, ShouldBeLessThanOrEqualTo, 3)
			}
		})
	})
}

func TestRenderRoster_Zipped(t *testing.T) {
	Convey("Given a zipped export", t, func() {
		r, err := renderRoster(waaagh, 0, true)
		So(err, ShouldBeNil)
		So(r.Filename, ShouldEndWith, ".rosz")
		So(bytes.HasPrefix(r.Data, []byte("PK\x03\x04")), ShouldBeTrue)

		Convey("The archive should round-trip through the parser", func() {
			parsed, err := roster.NewParser().ParseFile(context.Background(), r.Filename, r.Data)
			So(err, ShouldBeNil)
			So(parsed.Name, ShouldEqual, r.Name)
			So(len(parsed.Units), ShouldBeGreaterThan, 0)
		})
	})
}

func TestRenderRoster_HomebrewDiagnostics(t *testing.T) {
	Convey("Given a homebrew export", t, func() {
		parser := roster.NewParser()
		ctx := context.Background()

		r, err := renderRoster(homebrew, 0, false)
		So(err, ShouldBeNil)

		parsed, err := parser.ParseFile(ctx, r.Filename, r.Data)
		So(err, ShouldBeNil)

		Convey("No detachment should be declared", func() {
			So(parsed.Detachments, ShouldBeEmpty)
		})

		Convey("The leader should carry no keywords at all", func() {
			bare := 0
			for _, u := range parsed.Units {
				if len(u.Keywords) == 0 {
					bare++
				}
			}
			So(bare, ShouldBeGreaterThanOrEqualTo, 1)
		})
	})
}

func TestGenerateRosters(t *testing.T) {
	Convey("Given a generation config", t, func() {
		config := &Config{
			NumRosters: 12,
			Workers:    4,
			Timeout:    5 * time.Second,
		}
		stats := &Stats{}

		Convey("The pool should produce exactly the requested count", func() {
			rosters, err := generateRosters(context.Background(), config, stats)
			So(err, ShouldBeNil)
			So(len(rosters), ShouldEqual, 12)
			So(stats.RostersGenerated, ShouldEqual, 12)

			seen := make(map[string]struct{}, len(rosters))
			for _, r := range rosters {
				So(len(r.Data), ShouldBeGreaterThan, 0)
				So(strings.HasSuffix(r.Filename, ".ros"), ShouldBeTrue)
				seen[r.Filename] = struct{}{}
			}
			So(len(seen), ShouldEqual, 12)
		})

		Convey("A cancelled context should abort generation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := generateRosters(ctx, config, stats)
			So(err, ShouldNotBeNil)
		})
	})
}
