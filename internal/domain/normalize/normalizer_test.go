package normalize_test

import (
	"context"
	"strings"
	"testing"

	model "github.com/okian/muster/internal/domain/model"
	normalize "github.com/okian/muster/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeResolver struct {
	factions []model.Faction
}

func (r *fakeResolver) FactionByID(_ context.Context, id string) (model.Faction, bool) {
	for _, f := range r.factions {
		if f.ID == id {
			return f, true
		}
	}
	return model.Faction{}, false
}

func (r *fakeResolver) FactionByName(_ context.Context, name string) (model.Faction, bool) {
	for _, f := range r.factions {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return model.Faction{}, false
}

func newTestNormalizer(opts ...normalize.Option) *normalize.Normalizer {
	resolver := &fakeResolver{factions: []model.Faction{
		{ID: "SM", Name: "Space Marines"},
		{ID: "ORK", Name: "Orks"},
		{ID: "QT", Name: "Leagues of Votann"},
	}}
	base := []normalize.Option{
		normalize.WithFactionAliases(map[string]string{
			"Ultramarines":     "SM",            // alias to an ID
			"adeptus astartes": "Space Marines", // alias to a name
		}),
		normalize.WithUnitRenames(map[string]string{
			"War Dog Brigand Squadron": "War Dog Brigand",
			"Chapter Master":           "Captain",
		}),
	}
	return normalize.New(resolver, append(base, opts...)...)
}

func TestFactionResolution(t *testing.T) {
	Convey("Given a normalizer with alias tables", t, func() {
		n := newTestNormalizer()
		ctx := context.Background()

		Convey("When a tag matches an alias mapping to an ID", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"Ultramarines"}})

			Convey("Then it resolves to the canonical faction", func() {
				So(r.FactionIDs, ShouldResemble, []string{"SM"})
				So(r.UnresolvedFactions, ShouldBeEmpty)
			})
		})

		Convey("When a tag matches an alias mapping to a name", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"Adeptus Astartes"}})

			Convey("Then the alias target is resolved through the resolver", func() {
				So(r.FactionIDs, ShouldResemble, []string{"SM"})
			})
		})

		Convey("When a tag carries a catalogue prefix", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"Imperium - Ultramarines"}})

			Convey("Then the prefix is stripped before alias lookup", func() {
				So(r.FactionIDs, ShouldResemble, []string{"SM"})
			})
		})

		Convey("When a tag is an exact faction name", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"oRKs"}})

			Convey("Then it resolves case-insensitively", func() {
				So(r.FactionIDs, ShouldResemble, []string{"ORK"})
			})
		})

		Convey("When a tag is already a canonical ID", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"SM"}})

			Convey("Then it passes through unchanged", func() {
				So(r.FactionIDs, ShouldResemble, []string{"SM"})
			})
		})

		Convey("When a tag matches nothing", func() {
			r := n.Normalize(ctx, &model.Roster{FactionTags: []string{"Homebrew Faction"}})

			Convey("Then it is recorded unresolved, never guessed", func() {
				So(r.FactionIDs, ShouldBeEmpty)
				So(r.UnresolvedFactions, ShouldResemble, []string{"Homebrew Faction"})
			})
		})

		Convey("When two tags resolve to the same faction", func() {
			r := n.Normalize(ctx, &model.Roster{
				FactionTags: []string{"Ultramarines", "Space Marines"},
			})

			Convey("Then the resolved set is deduplicated", func() {
				So(r.FactionIDs, ShouldResemble, []string{"SM"})
			})
		})
	})
}

func TestResolveTag(t *testing.T) {
	Convey("Given a normalizer with alias tables", t, func() {
		n := newTestNormalizer()
		ctx := context.Background()

		Convey("When resolving single tags directly", func() {
			cases := []struct {
				tag  string
				want string
			}{
				{"SM", "SM"},
				{"space marines", "SM"},
				{"ULTRAMARINES", "SM"},
				{"Imperium - Adeptus Astartes", "SM"},
				{"Leagues of Votann", "QT"},
			}

			Convey("Then each resolves to its canonical ID", func() {
				for _, c := range cases {
					id, ok := n.ResolveTag(ctx, c.tag)
					So(ok, ShouldBeTrue)
					So(id, ShouldEqual, c.want)
				}
			})
		})

		Convey("When resolving an unknown tag", func() {
			_, ok := n.ResolveTag(ctx, "Homebrew Faction")

			Convey("Then it reports no match", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestUnitNormalization(t *testing.T) {
	Convey("Given a normalizer with rename tables", t, func() {
		ctx := context.Background()

		Convey("When a unit name matches a rename entry", func() {
			n := newTestNormalizer()
			r := n.Normalize(ctx, &model.Roster{Units: []model.Unit{
				{ID: "u-1", Name: "War Dog Brigand Squadron", FactionID: "Leagues of Votann"},
			}})

			Convey("Then the canonical name is the rename target", func() {
				So(r.Units[0].CanonicalName, ShouldEqual, "War Dog Brigand")
				So(r.Units[0].Name, ShouldEqual, "War Dog Brigand Squadron")
			})

			Convey("Then the faction hint is resolved too", func() {
				So(r.Units[0].FactionID, ShouldEqual, "QT")
				So(r.Units[0].Unresolved, ShouldBeFalse)
			})
		})

		Convey("When a unit name has no rename entry", func() {
			n := newTestNormalizer()
			r := n.Normalize(ctx, &model.Roster{Units: []model.Unit{
				{ID: "u-1", Name: "Intercessor Squad"},
			}})

			Convey("Then the canonical name defaults to the export name", func() {
				So(r.Units[0].CanonicalName, ShouldEqual, "Intercessor Squad")
			})
		})

		Convey("When a unit name is close to a rename entry but not exact", func() {
			n := newTestNormalizer()
			r := n.Normalize(ctx, &model.Roster{Units: []model.Unit{
				{ID: "u-1", Name: "war dog brigand squadron"},
			}})

			Convey("Then no fuzzy matching happens", func() {
				So(r.Units[0].CanonicalName, ShouldEqual, "war dog brigand squadron")
			})
		})

		Convey("When a vocabulary is installed", func() {
			vocab := map[string]bool{"War Dog Brigand": true, "Intercessor Squad": true}
			n := newTestNormalizer(normalize.WithUnitVocabulary(func(name string) bool {
				return vocab[name]
			}))

			r := n.Normalize(ctx, &model.Roster{Units: []model.Unit{
				{ID: "u-1", Name: "War Dog Brigand Squadron"},
				{ID: "u-2", Name: "Homebrew Champion"},
			}})

			Convey("Then known canonical names pass", func() {
				So(r.Units[0].RenameUnresolved, ShouldBeFalse)
			})

			Convey("Then names outside the vocabulary are flagged", func() {
				So(r.Units[1].RenameUnresolved, ShouldBeTrue)
				So(r.Units[1].CanonicalName, ShouldEqual, "Homebrew Champion")
			})
		})

		Convey("When a unit faction hint cannot be resolved", func() {
			n := newTestNormalizer()
			r := n.Normalize(ctx, &model.Roster{Units: []model.Unit{
				{ID: "u-1", Name: "Homebrew Champion", FactionID: "Homebrew Faction"},
			}})

			Convey("Then the unit is flagged and the raw hint kept", func() {
				So(r.Units[0].Unresolved, ShouldBeTrue)
				So(r.Units[0].FactionID, ShouldEqual, "Homebrew Faction")
			})
		})
	})
}

func TestNormalizeProperties(t *testing.T) {
	Convey("Given normalization properties", t, func() {
		n := newTestNormalizer()
		ctx := context.Background()

		input := &model.Roster{
			Name:        "Strike Force",
			FactionTags: []string{"Imperium - Ultramarines", "Homebrew Faction"},
			Units: []model.Unit{
				{ID: "u-1", Name: "Chapter Master", FactionID: "Adeptus Astartes", Keywords: []string{"CHARACTER"}},
				{ID: "u-2", Name: "Homebrew Champion", FactionID: "Homebrew Faction"},
			},
		}

		Convey("When normalizing", func() {
			first := n.Normalize(ctx, input)

			Convey("Then the input roster is not mutated", func() {
				So(input.FactionIDs, ShouldBeNil)
				So(input.UnresolvedFactions, ShouldBeNil)
				So(input.Units[0].CanonicalName, ShouldEqual, "")
				So(input.Units[0].FactionID, ShouldEqual, "Adeptus Astartes")
			})

			Convey("Then normalizing again changes nothing", func() {
				second := n.Normalize(ctx, first)
				So(second, ShouldResemble, first)
			})

			Convey("Then resolved and unresolved tags are split", func() {
				So(first.FactionIDs, ShouldResemble, []string{"SM"})
				So(first.UnresolvedFactions, ShouldResemble, []string{"Homebrew Faction"})
			})
		})
	})
}
