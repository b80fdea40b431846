package roster_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	roster "github.com/okian/muster/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleRoster = `<?xml version="1.0" encoding="UTF-8"?>
<roster id="r-1" name="Strike Force Octavius" battleScribeVersion="2.03" gameSystemName="Warhammer 40,000" xmlns="http://www.battlescribe.net/schema/rosterSchema">
  <forces>
    <force id="f-1" catalogueName="Imperium - Ultramarines">
      <selections>
        <selection id="s-meta" name="Battle Size" type="upgrade"/>
        <selection id="s-det" name="Detachment" type="upgrade">
          <selections>
            <selection id="s-det-1" name="Gladius Task Force" type="upgrade"/>
          </selections>
        </selection>
        <selection id="s-1" name="Intercessor Squad" type="unit">
          <categories>
            <category id="c-1" name="Faction: Adeptus Astartes"/>
            <category id="c-2" name="Infantry"/>
            <category id="c-3" name="Primaris"/>
            <category id="c-4" name="Infantry"/>
          </categories>
          <selections>
            <selection id="s-1a" name="Intercessor" type="model" number="4"/>
            <selection id="s-1b" name="Intercessor Sergeant" type="model" number="1"/>
          </selections>
        </selection>
        <selection id="s-2" name="Redemptor Dreadnought" type="model" number="1">
          <categories>
            <category id="c-5" name="Faction: Adeptus Astartes"/>
            <category id="c-6" name="Vehicle"/>
          </categories>
        </selection>
      </selections>
    </force>
  </forces>
</roster>`

func mustZip(members map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestParseRosterDocument(t *testing.T) {
	Convey("Given a BattleScribe 2.x export", t, func() {
		p := roster.NewParser()
		ctx := context.Background()

		Convey("When parsing a well-formed document", func() {
			r, err := p.Parse(ctx, []byte(sampleRoster))

			Convey("Then roster metadata is extracted", func() {
				So(err, ShouldBeNil)
				So(r, ShouldNotBeNil)
				So(r.Name, ShouldEqual, "Strike Force Octavius")
				So(r.SchemaVersion, ShouldEqual, "2.03")
				So(r.FactionTags, ShouldResemble, []string{"Imperium - Ultramarines"})
			})

			Convey("Then the detachment is collected", func() {
				So(err, ShouldBeNil)
				So(r.Detachments, ShouldHaveLength, 1)
				So(r.Detachments[0].Name, ShouldEqual, "Gladius Task Force")
			})

			Convey("Then units are extracted and bookkeeping selections skipped", func() {
				So(err, ShouldBeNil)
				So(r.Units, ShouldHaveLength, 2)
				So(r.Units[0].Name, ShouldEqual, "Intercessor Squad")
				So(r.Units[1].Name, ShouldEqual, "Redemptor Dreadnought")
			})

			Convey("Then keywords are uppercased and deduplicated in order", func() {
				So(err, ShouldBeNil)
				So(r.Units[0].Keywords, ShouldResemble, []string{"ADEPTUS ASTARTES", "INFANTRY", "PRIMARIS"})
			})

			Convey("Then the faction category becomes the unit's faction hint", func() {
				So(err, ShouldBeNil)
				So(r.Units[0].FactionID, ShouldEqual, "Adeptus Astartes")
			})

			Convey("Then model counts sum nested model entries", func() {
				So(err, ShouldBeNil)
				So(r.Units[0].Models, ShouldEqual, 5)
				So(r.Units[1].Models, ShouldEqual, 1)
			})
		})

		Convey("When a unit carries no categories", func() {
			doc := `<roster name="Bare" battleScribeVersion="2.01">
  <forces><force catalogueName="Orks"><selections>
    <selection id="u-1" name="Homebrew Champion" type="unit"/>
  </selections></force></forces>
</roster>`
			r, err := p.Parse(ctx, []byte(doc))

			Convey("Then the unit is kept with an empty keyword set", func() {
				So(err, ShouldBeNil)
				So(r.Units, ShouldHaveLength, 1)
				So(r.Units[0].Keywords, ShouldBeEmpty)
				So(r.Units[0].Models, ShouldEqual, 1)
				So(r.Units[0].FactionID, ShouldEqual, "Orks")
			})
		})

		Convey("When two units share a name at different sizes", func() {
			doc := `<roster name="Twins" battleScribeVersion="2.03">
  <forces><force catalogueName="Orks"><selections>
    <selection name="Boyz" type="unit">
      <selections><selection name="Boy" type="model" number="10"/></selections>
    </selection>
    <selection name="Boyz" type="unit">
      <selections><selection name="Boy" type="model" number="20"/></selections>
    </selection>
  </selections></force></forces>
</roster>`
			r, err := p.Parse(ctx, []byte(doc))

			Convey("Then both are retained as distinct units", func() {
				So(err, ShouldBeNil)
				So(r.Units, ShouldHaveLength, 2)
				So(r.Units[0].Models, ShouldEqual, 10)
				So(r.Units[1].Models, ShouldEqual, 20)
				So(r.Units[0].ID, ShouldNotEqual, r.Units[1].ID)
			})

			Convey("Then missing export ids are synthesized in document order", func() {
				So(err, ShouldBeNil)
				So(r.Units[0].ID, ShouldEqual, "unit-1")
				So(r.Units[1].ID, ShouldEqual, "unit-2")
			})
		})

		Convey("When forces repeat a catalogue name", func() {
			doc := `<roster name="Allies" battleScribeVersion="2.02">
  <forces>
    <force catalogueName="Imperium - Ultramarines"><selections/></force>
    <force catalogueName="Imperium - Ultramarines"><selections/></force>
    <force catalogueName="Imperium - Adeptus Custodes"><selections/></force>
  </forces>
</roster>`
			r, err := p.Parse(ctx, []byte(doc))

			Convey("Then faction tags are deduplicated keeping first occurrence", func() {
				So(err, ShouldBeNil)
				So(r.FactionTags, ShouldResemble, []string{
					"Imperium - Ultramarines",
					"Imperium - Adeptus Custodes",
				})
			})
		})

		Convey("When duplicate detachment entries appear", func() {
			doc := `<roster name="Doubles" battleScribeVersion="2.03">
  <forces><force catalogueName="Orks"><selections>
    <selection name="Detachment" type="upgrade">
      <selections><selection name="War Horde" type="upgrade"/></selections>
    </selection>
    <selection name="Detachment" type="upgrade">
      <selections><selection name="War Horde" type="upgrade"/></selections>
    </selection>
  </selections></force></forces>
</roster>`
			r, err := p.Parse(ctx, []byte(doc))

			Convey("Then both entries are retained", func() {
				So(err, ShouldBeNil)
				So(r.Detachments, ShouldHaveLength, 2)
			})
		})
	})
}

func TestParseMalformedDocuments(t *testing.T) {
	Convey("Given unreadable input", t, func() {
		p := roster.NewParser()
		ctx := context.Background()

		Convey("When the document is empty", func() {
			_, err := p.Parse(ctx, nil)

			Convey("Then it is malformed", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})

		Convey("When the document is not XML", func() {
			_, err := p.Parse(ctx, []byte("this is not a roster"))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})

		Convey("When the root element is not a roster", func() {
			_, err := p.Parse(ctx, []byte(`<catalogue name="nope" battleScribeVersion="2.03"/>`))

			Convey("Then it is malformed and no partial roster is produced", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})

		Convey("When the XML is truncated", func() {
			_, err := p.Parse(ctx, []byte(`<roster name="Broken" battleScribeVersion="2.03"><forces>`))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})
	})
}

func TestParseSchemaVersions(t *testing.T) {
	Convey("Given version gating", t, func() {
		p := roster.NewParser()
		ctx := context.Background()

		Convey("When the export version is missing", func() {
			_, err := p.Parse(ctx, []byte(`<roster name="NoVersion"><forces/></roster>`))

			Convey("Then the schema is unsupported and the error names both versions", func() {
				So(errors.Is(err, roster.ErrUnsupportedSchema), ShouldBeTrue)
				var schemaErr *roster.SchemaError
				So(errors.As(err, &schemaErr), ShouldBeTrue)
				So(schemaErr.Detected, ShouldEqual, "")
				So(schemaErr.Supported, ShouldEqual, roster.SupportedSchema)
			})
		})

		Convey("When the export version is from an older family", func() {
			_, err := p.Parse(ctx, []byte(`<roster name="Old" battleScribeVersion="1.15b"><forces/></roster>`))

			Convey("Then the schema is unsupported", func() {
				So(errors.Is(err, roster.ErrUnsupportedSchema), ShouldBeTrue)
				var schemaErr *roster.SchemaError
				So(errors.As(err, &schemaErr), ShouldBeTrue)
				So(schemaErr.Detected, ShouldEqual, "1.15b")
			})
		})

		Convey("When the export version is from a newer family", func() {
			_, err := p.Parse(ctx, []byte(`<roster name="Future" battleScribeVersion="3.00"><forces/></roster>`))

			Convey("Then the schema is unsupported", func() {
				So(errors.Is(err, roster.ErrUnsupportedSchema), ShouldBeTrue)
			})
		})

		Convey("When the export version is within the 2.x family", func() {
			for _, v := range []string{"2.00", "2.01", "2.02", "2.03"} {
				r, err := p.Parse(ctx, []byte(`<roster name="Fine" battleScribeVersion="`+v+`"><forces/></roster>`))
				So(err, ShouldBeNil)
				So(r.SchemaVersion, ShouldEqual, v)
			}
		})
	})
}

func TestParseArchives(t *testing.T) {
	Convey("Given .rosz archive handling", t, func() {
		p := roster.NewParser()
		ctx := context.Background()

		Convey("When the archive contains a .ros member", func() {
			data := mustZip(map[string]string{"Strike Force Octavius.ros": sampleRoster})

			r, err := p.ParseFile(ctx, "Strike Force Octavius.rosz", data)

			Convey("Then the member is parsed", func() {
				So(err, ShouldBeNil)
				So(r.Name, ShouldEqual, "Strike Force Octavius")
				So(r.Units, ShouldHaveLength, 2)
			})
		})

		Convey("When the filename gives no hint", func() {
			data := mustZip(map[string]string{"list.ros": sampleRoster})

			r, err := p.ParseFile(ctx, "upload.bin", data)

			Convey("Then the zip form is detected by content", func() {
				So(err, ShouldBeNil)
				So(r.Name, ShouldEqual, "Strike Force Octavius")
			})
		})

		Convey("When Parse receives archive bytes directly", func() {
			data := mustZip(map[string]string{"list.ros": sampleRoster})

			r, err := p.Parse(ctx, data)

			Convey("Then it still parses", func() {
				So(err, ShouldBeNil)
				So(r.Name, ShouldEqual, "Strike Force Octavius")
			})
		})

		Convey("When the archive has no .ros member", func() {
			data := mustZip(map[string]string{"readme.txt": "nothing here"})

			_, err := p.ParseFile(ctx, "upload.rosz", data)

			Convey("Then it is malformed", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})

		Convey("When the bytes are not a real archive", func() {
			_, err := p.ParseFile(ctx, "upload.rosz", []byte("PK\x03\x04 but truncated"))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, roster.ErrMalformedDocument), ShouldBeTrue)
			})
		})
	})
}

func TestParserOptions(t *testing.T) {
	Convey("Given parser options", t, func() {
		ctx := context.Background()

		Convey("When extra non-unit names are configured", func() {
			p := roster.NewParser(roster.WithNonUnitNames("Reference Card"))
			doc := `<roster name="Opts" battleScribeVersion="2.03">
  <forces><force catalogueName="Orks"><selections>
    <selection name="Reference Card" type="unit"/>
    <selection name="Boyz" type="unit"/>
  </selections></force></forces>
</roster>`
			r, err := p.Parse(ctx, []byte(doc))

			Convey("Then the named selections are skipped", func() {
				So(err, ShouldBeNil)
				So(r.Units, ShouldHaveLength, 1)
				So(r.Units[0].Name, ShouldEqual, "Boyz")
			})
		})
	})
}
