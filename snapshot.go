package kinetix

import (
	"encoding/xml"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SnapshotDoc is the on-disk simulation document. Element order inside
// the registries is meaningful and survives a round-trip; floats are
// written at full precision.
type SnapshotDoc struct {
	XMLName    xml.Name      `xml:"Simulation"`
	Properties PropertiesDoc `xml:"Properties"`
	Dynamics   DynamicsDoc   `xml:"Dynamics"`
	Scheduler  SchedulerDoc  `xml:"Scheduler"`
	Particles  ParticlesDoc  `xml:"Particles"`
}

type PropertiesDoc struct {
	RunID         string       `xml:"RunID,attr,omitempty"`
	Time          float64      `xml:"Time,attr"`
	Collisions    uint64       `xml:"Collisions,attr"`
	RunLength     float64      `xml:"RunLength,attr"`
	MaxCollisions uint64       `xml:"MaxCollisions,attr"`
	UnitBasis     UnitBasisDoc `xml:"UnitBasis"`
}

type UnitBasisDoc struct {
	Length float64 `xml:"Length,attr"`
	Time   float64 `xml:"Time,attr"`
	Mass   float64 `xml:"Mass,attr"`
}

type DynamicsDoc struct {
	Liouvillean  LiouvilleanDoc   `xml:"Liouvillean"`
	BC           BCDoc            `xml:"BC"`
	Species      []SpeciesDoc     `xml:"Species>Sp"`
	Interactions []InteractionDoc `xml:"Interactions>Interaction"`
	Locals       []LocalDoc       `xml:"Locals>Local"`
	Globals      []GlobalDoc      `xml:"Globals>Global"`
}

type LiouvilleanDoc struct {
	Type       string  `xml:"Type,attr"`
	GrowthRate float64 `xml:"GrowthRate,attr,omitempty"`
}

type BCDoc struct {
	Type string  `xml:"Type,attr"`
	X    float64 `xml:"x,attr"`
	Y    float64 `xml:"y,attr"`
	Z    float64 `xml:"z,attr"`
}

type SpeciesDoc struct {
	Name     string  `xml:"Name,attr"`
	Mass     float64 `xml:"Mass,attr"`
	Diameter float64 `xml:"Diameter,attr"`
}

type InteractionDoc struct {
	Type     string  `xml:"Type,attr"`
	Name     string  `xml:"Name,attr"`
	Diameter float64 `xml:"Diameter,attr"`
}

type LocalDoc struct {
	Type    string  `xml:"Type,attr"`
	Name    string  `xml:"Name,attr"`
	NormalX float64 `xml:"NormalX,attr"`
	NormalY float64 `xml:"NormalY,attr"`
	NormalZ float64 `xml:"NormalZ,attr"`
	Offset  float64 `xml:"Offset,attr"`
}

type GlobalDoc struct {
	Type            string `xml:"Type,attr"`
	MaxCellsPerAxis int    `xml:"MaxCellsPerAxis,attr,omitempty"`
}

type SchedulerDoc struct {
	Type   string    `xml:"Type,attr"`
	Sorter SorterDoc `xml:"Sorter"`
}

type SorterDoc struct {
	Type string `xml:"Type,attr"`
}

type ParticlesDoc struct {
	Pts []ParticleDoc `xml:"Pt"`
}

type ParticleDoc struct {
	ID      int    `xml:"ID,attr"`
	Species string `xml:"Species,attr"`
	Pos     VecDoc `xml:"P"`
	Vel     VecDoc `xml:"V"`
}

type VecDoc struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

func (v VecDoc) vec() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func vecDoc(v mgl64.Vec3) VecDoc { return VecDoc{X: v[0], Y: v[1], Z: v[2]} }

// ParseSnapshot decodes a simulation document.
func ParseSnapshot(data []byte) (*SnapshotDoc, error) {
	var doc SnapshotDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing snapshot")
	}
	return &doc, nil
}

// Marshal encodes the document with an XML header and indentation.
func (doc *SnapshotDoc) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding snapshot")
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func LoadSnapshotFile(path string) (*SnapshotDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot %s", path)
	}
	return ParseSnapshot(data)
}

func WriteSnapshotFile(path string, doc *SnapshotDoc) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing snapshot %s", path)
}

// BuildSim assembles a runnable simulation from a parsed document.
// Unknown type tags and inconsistent species are config errors.
func BuildSim(doc *SnapshotDoc, log Logger) (*Sim, error) {
	b := NewSimBuilder().WithLogger(log)

	dims := mgl64.Vec3{doc.Dynamics.BC.X, doc.Dynamics.BC.Y, doc.Dynamics.BC.Z}
	switch doc.Dynamics.BC.Type {
	case "Periodic":
		b.WithBoundary(&PeriodicBoundary{Dimensions: dims})
	case "Reflecting":
		b.WithBoundary(&ReflectingBoundary{Dimensions: dims})
	case "None":
		b.WithBoundary(&NoBoundary{Dimensions: dims})
	default:
		return nil, configErrorf("unknown BC type %q", doc.Dynamics.BC.Type)
	}

	switch doc.Dynamics.Liouvillean.Type {
	case "Newtonian":
	case "Compression":
		b.WithCompression(doc.Dynamics.Liouvillean.GrowthRate)
	default:
		return nil, configErrorf("unknown Liouvillean type %q", doc.Dynamics.Liouvillean.Type)
	}

	if doc.Scheduler.Type != "NeighbourList" {
		return nil, configErrorf("unknown Scheduler type %q", doc.Scheduler.Type)
	}
	if doc.Scheduler.Sorter.Type != "BoundedPQ" {
		return nil, configErrorf("unknown Sorter type %q", doc.Scheduler.Sorter.Type)
	}

	speciesIdx := make(map[string]SpeciesID, len(doc.Dynamics.Species))
	for i, sp := range doc.Dynamics.Species {
		if _, dup := speciesIdx[sp.Name]; dup {
			return nil, configErrorf("duplicate species %q", sp.Name)
		}
		speciesIdx[sp.Name] = SpeciesID(i)
		b.WithSpecies(Species{Name: sp.Name, Mass: sp.Mass, Diameter: sp.Diameter})
	}

	for _, it := range doc.Dynamics.Interactions {
		if it.Type != "HardSphere" {
			return nil, configErrorf("unknown Interaction type %q", it.Type)
		}
		b.WithInteraction(NewHardSphereInteraction(it.Name, it.Diameter))
	}

	for _, l := range doc.Dynamics.Locals {
		if l.Type != "Wall" {
			return nil, configErrorf("unknown Local type %q", l.Type)
		}
		normal := mgl64.Vec3{l.NormalX, l.NormalY, l.NormalZ}
		if normal.Len() == 0 {
			return nil, configErrorf("wall %q has a zero normal", l.Name)
		}
		b.WithLocal(&PlanarWall{Label: l.Name, Normal: normal.Normalize(), Offset: l.Offset})
	}

	haveCells := false
	for _, g := range doc.Dynamics.Globals {
		switch g.Type {
		case "Cells":
			haveCells = true
			if g.MaxCellsPerAxis > 0 {
				b.WithMaxCellsPerAxis(g.MaxCellsPerAxis)
			}
		default:
			return nil, configErrorf("unknown Global type %q", g.Type)
		}
	}
	if !haveCells {
		return nil, configErrorf("the NeighbourList scheduler requires a Cells global")
	}

	for i, pt := range doc.Particles.Pts {
		sid, ok := speciesIdx[pt.Species]
		if !ok {
			return nil, configErrorf("particle %d references unknown species %q", i, pt.Species)
		}
		b.WithParticles(Particle{
			Position: pt.Pos.vec(),
			Velocity: pt.Vel.vec(),
			Species:  sid,
		})
	}

	b.WithStartTime(doc.Properties.Time)
	if doc.Properties.RunLength != 0 {
		b.WithEndTime(doc.Properties.RunLength)
	}
	b.WithMaxCollisions(doc.Properties.MaxCollisions)
	if doc.Properties.RunID != "" {
		id, err := uuid.Parse(doc.Properties.RunID)
		if err != nil {
			return nil, configErrorf("bad RunID %q: %v", doc.Properties.RunID, err)
		}
		b.WithRunID(id)
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	s.collisions = doc.Properties.Collisions
	return s, nil
}

// CaptureSnapshot streams every particle to the current time and emits
// the document for the live configuration.
func CaptureSnapshot(s *Sim) (*SnapshotDoc, error) {
	if err := s.store.UpdateAll(s.time); err != nil {
		return nil, err
	}

	doc := &SnapshotDoc{
		Properties: PropertiesDoc{
			RunID:         s.runID.String(),
			Time:          s.time,
			Collisions:    s.collisions,
			RunLength:     s.endTime,
			MaxCollisions: s.maxCollisions,
			UnitBasis:     UnitBasisDoc{Length: 1, Time: 1, Mass: 1},
		},
		Scheduler: SchedulerDoc{Type: "NeighbourList", Sorter: SorterDoc{Type: "BoundedPQ"}},
	}

	box := s.boundary.Box()
	doc.Dynamics.BC = BCDoc{Type: s.boundary.Type(), X: box[0], Y: box[1], Z: box[2]}
	doc.Dynamics.Liouvillean = LiouvilleanDoc{Type: s.liou.TypeName(), GrowthRate: s.liou.rate()}

	for _, sp := range s.store.AllSpecies() {
		doc.Dynamics.Species = append(doc.Dynamics.Species, SpeciesDoc{
			Name: sp.Name, Mass: sp.Mass, Diameter: sp.Diameter,
		})
	}
	for _, it := range s.interactions.Items() {
		hs, ok := it.(*HardSphereInteraction)
		if !ok {
			return nil, configErrorf("cannot serialise interaction %q", it.Name())
		}
		doc.Dynamics.Interactions = append(doc.Dynamics.Interactions, InteractionDoc{
			Type: "HardSphere", Name: hs.Label, Diameter: hs.Diam,
		})
	}
	for _, l := range s.locals.Items() {
		if _, ok := l.(*PlanarWall); !ok {
			return nil, configErrorf("cannot serialise local %q", l.Name())
		}
		normal, offset := l.Plane()
		doc.Dynamics.Locals = append(doc.Dynamics.Locals, LocalDoc{
			Type: "Wall", Name: l.Name(),
			NormalX: normal[0], NormalY: normal[1], NormalZ: normal[2],
			Offset: offset,
		})
	}
	for _, g := range s.globals.Items() {
		cl, ok := g.(*CellList)
		if !ok {
			return nil, configErrorf("cannot serialise global %q", g.Name())
		}
		doc.Dynamics.Globals = append(doc.Dynamics.Globals, GlobalDoc{
			Type: "Cells", MaxCellsPerAxis: cl.maxPerAxis,
		})
	}

	for id := 0; id < s.store.Len(); id++ {
		p := s.store.Get(id)
		doc.Particles.Pts = append(doc.Particles.Pts, ParticleDoc{
			ID:      id,
			Species: s.store.Species(p.Species).Name,
			Pos:     vecDoc(p.Position),
			Vel:     vecDoc(p.Velocity),
		})
	}
	return doc, nil
}
