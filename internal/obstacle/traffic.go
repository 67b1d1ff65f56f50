package obstacle

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
)

// Dynamic is a moving agent treated as a time-varying exclusion
// region: a horizontal disc of Radius degrees with a vertical band of
// VerticalSep meters around its altitude.
type Dynamic struct {
	ID          string    `json:"id"`
	Position    orb.Point `json:"position"`
	Altitude    float64   `json:"altitude"`
	Radius      float64   `json:"radius"`
	VerticalSep float64   `json:"verticalSep"`
}

// Blocks reports whether segment a-b flown at alt passes through this
// obstacle's exclusion region.
func (d Dynamic) Blocks(a, b orb.Point, alt float64) bool {
	if math.Abs(alt-d.Altitude) >= d.VerticalSep {
		return false
	}
	return geometry.PointToSegment(d.Position, a, b) < d.Radius
}

// TrafficSource supplies the dynamic obstacles current at a given
// time. Implementations must be safe for concurrent use; the planner
// samples it fresh at every plan and re-plan cycle.
type TrafficSource interface {
	ObstaclesAt(t time.Time) []Dynamic
}

// SimulatedTraffic is a deterministic drifting-agent source used when
// no live feed is wired up. Positions are a pure function of time, so
// tests can replay exact scenarios.
type SimulatedTraffic struct {
	agents []simAgent
	epoch  time.Time
}

type simAgent struct {
	id       string
	origin   orb.Point
	velocity orb.Point // degrees per second
	altitude float64
	radius   float64
}

// NewSimulatedTraffic places n agents stepped away from origin, each
// drifting slowly on its own heading.
func NewSimulatedTraffic(n int, origin orb.Point, epoch time.Time) *SimulatedTraffic {
	st := &SimulatedTraffic{epoch: epoch}
	for i := 0; i < n; i++ {
		st.agents = append(st.agents, simAgent{
			id:     uuid.New().String(),
			origin: orb.Point{origin[0] - 0.01*float64(i), origin[1] + 0.01*float64(i)},
			velocity: orb.Point{
				0.00001 * math.Cos(float64(i)),
				0.00001 * math.Sin(float64(i)),
			},
			altitude: 80,
			radius:   0.002,
		})
	}
	return st
}

func (st *SimulatedTraffic) ObstaclesAt(t time.Time) []Dynamic {
	dt := t.Sub(st.epoch).Seconds()
	out := make([]Dynamic, len(st.agents))
	for i, a := range st.agents {
		out[i] = Dynamic{
			ID:          a.id,
			Position:    orb.Point{a.origin[0] + a.velocity[0]*dt, a.origin[1] + a.velocity[1]*dt},
			Altitude:    a.altitude,
			Radius:      a.radius,
			VerticalSep: 30,
		}
	}
	return out
}

// StaticTraffic pins a fixed obstacle set regardless of time; the test
// suites use it to script exact conflict scenarios.
type StaticTraffic []Dynamic

func (st StaticTraffic) ObstaclesAt(time.Time) []Dynamic { return st }
