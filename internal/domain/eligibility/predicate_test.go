package eligibility_test

import (
	"errors"
	"testing"

	eligibility "github.com/okian/muster/internal/domain/eligibility"
	. "github.com/smartystreets/goconvey/convey"
)

func testEnv() eligibility.Env {
	return eligibility.Env{
		Units: []eligibility.UnitView{
			{ID: "unit-1", Name: "Intercessor Squad", Keywords: []string{"INFANTRY", "PRIMARIS", "INTERCESSOR SQUAD"}, Models: 5},
			{ID: "unit-2", Name: "Intercessor Squad", Keywords: []string{"INFANTRY", "PRIMARIS", "INTERCESSOR SQUAD"}, Models: 10},
			{ID: "unit-3", Name: "Redemptor Dreadnought", Keywords: []string{"VEHICLE", "WALKER", "REDEMPTOR DREADNOUGHT"}, Models: 1},
		},
		Detachments: []string{"Gladius Task Force"},
		FactionIDs:  []string{"SM", "AS"},
	}
}

func TestEnvHelpers(t *testing.T) {
	Convey("Given a roster environment", t, func() {
		env := testEnv()

		Convey("When querying keywords", func() {
			Convey("Then keyword membership is case-insensitive", func() {
				So(env.HasKeyword("INFANTRY"), ShouldBeTrue)
				So(env.HasKeyword("infantry"), ShouldBeTrue)
				So(env.HasKeyword("TITANIC"), ShouldBeFalse)
			})

			Convey("Then unit and model counts follow the keyword", func() {
				So(env.UnitsWithKeyword("INFANTRY"), ShouldEqual, 2)
				So(env.UnitsWithKeyword("VEHICLE"), ShouldEqual, 1)
				So(env.CountModels("INFANTRY"), ShouldEqual, 15)
				So(env.CountModels("VEHICLE"), ShouldEqual, 1)
				So(env.CountModels("TITANIC"), ShouldEqual, 0)
			})
		})

		Convey("When querying detachments", func() {
			Convey("Then comparison ignores case and spacing", func() {
				So(env.HasDetachment("Gladius Task Force"), ShouldBeTrue)
				So(env.HasDetachment("gladius task force"), ShouldBeTrue)
				So(env.HasDetachment("GladiusTaskForce"), ShouldBeTrue)
				So(env.HasDetachment("Ironstorm Spearhead"), ShouldBeFalse)
			})
		})

		Convey("When querying factions and units", func() {
			So(env.HasFaction("SM"), ShouldBeTrue)
			So(env.HasFaction("sm"), ShouldBeTrue)
			So(env.HasFaction("ORK"), ShouldBeFalse)
			So(env.HasUnitNamed("Redemptor Dreadnought"), ShouldBeTrue)
			So(env.HasUnitNamed("Land Raider"), ShouldBeFalse)
			So(env.UnitCount(), ShouldEqual, 3)
		})
	})
}

func TestPredicateCompile(t *testing.T) {
	Convey("Given predicate compilation", t, func() {
		Convey("When the source is empty", func() {
			p, err := eligibility.Compile([]string{"INFANTRY"}, "", "")

			Convey("Then no condition is attached and it matches trivially", func() {
				So(err, ShouldBeNil)
				So(p.HasCondition(), ShouldBeFalse)
				ok, evalErr := p.EvalCondition(testEnv())
				So(evalErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the source is a valid boolean expression", func() {
			p, err := eligibility.Compile(nil, "", `CountModels("INFANTRY") >= 10`)

			Convey("Then it compiles and evaluates against the env", func() {
				So(err, ShouldBeNil)
				So(p.HasCondition(), ShouldBeTrue)
				ok, evalErr := p.EvalCondition(testEnv())
				So(evalErr, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the expression does not hold for the env", func() {
			p, err := eligibility.Compile(nil, "", `UnitsWithKeyword("VEHICLE") > 5`)
			So(err, ShouldBeNil)

			ok, evalErr := p.EvalCondition(testEnv())

			Convey("Then evaluation reports a non-match without error", func() {
				So(evalErr, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the expression combines helpers", func() {
			src := `HasDetachment("Gladius Task Force") && HasKeyword("PRIMARIS")`
			p, err := eligibility.Compile(nil, "", src)
			So(err, ShouldBeNil)

			ok, evalErr := p.EvalCondition(testEnv())
			So(evalErr, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When the source is not valid syntax", func() {
			_, err := eligibility.Compile(nil, "", `CountModels("INFANTRY" >=`)

			Convey("Then it returns ErrBadCondition", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, eligibility.ErrBadCondition), ShouldBeTrue)
			})
		})

		Convey("When the source references an unknown helper", func() {
			_, err := eligibility.Compile(nil, "", `SummonDaemons("KHORNE")`)

			Convey("Then compilation fails", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, eligibility.ErrBadCondition), ShouldBeTrue)
			})
		})
	})
}

func TestPredicateShape(t *testing.T) {
	Convey("Given predicate shapes", t, func() {
		Convey("When the predicate is the zero value", func() {
			var p eligibility.Predicate

			Convey("Then it is empty and matches any roster", func() {
				So(p.Empty(), ShouldBeTrue)
				ok, err := p.EvalCondition(eligibility.Env{})
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When built with New", func() {
			p := eligibility.New([]string{"INFANTRY"}, "Gladius Task Force")

			Convey("Then structured parts are kept and no condition is attached", func() {
				So(p.Empty(), ShouldBeFalse)
				So(p.Keywords, ShouldResemble, []string{"INFANTRY"})
				So(p.Detachment, ShouldEqual, "Gladius Task Force")
				So(p.HasCondition(), ShouldBeFalse)
			})
		})
	})
}

func TestNormalizeDetachment(t *testing.T) {
	Convey("Given detachment type names", t, func() {
		Convey("Then normalization lower-cases and strips spaces", func() {
			So(eligibility.NormalizeDetachment("Gladius Task Force"), ShouldEqual, "gladiustaskforce")
			So(eligibility.NormalizeDetachment(" gladius task force "), ShouldEqual, "gladiustaskforce")
			So(eligibility.NormalizeDetachment(""), ShouldEqual, "")
		})
	})
}
