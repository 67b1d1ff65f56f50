// Package planner implements the multi-objective sampling-based
// motion planner: goal-biased RRT* with rewiring over the obstacle
// field, battery and altitude as hard constraints, path smoothing,
// and a dynamic re-planner that keeps an in-flight path valid.
package planner

import (
	"fmt"
	"time"
)

// Config carries the cost-model weights, battery parameters, and
// search tuning for one planning request. Zero values are filled in by
// ApplyDefaults; Validate rejects out-of-range settings before any
// search begins.
type Config struct {
	// Cost model. Each weight is in [0,1]; they need not sum to 1.
	DistanceWeight float64 `json:"distanceWeight"`
	RiskWeight     float64 `json:"riskWeight"`
	NoiseWeight    float64 `json:"noiseWeight"`

	// Battery. Capacity may be zero (no affordable move, every plan is
	// infeasible); the usage rate must be positive.
	BatteryCapacity  float64 `json:"batteryCapacityMAh"`
	BatteryUsageRate float64 `json:"batteryUsageRateMAhPerKm"`

	// Altitude, meters.
	CruiseAltitude    float64 `json:"cruiseAltitude"`
	MaxAltitude       float64 `json:"maxAltitude"`
	VerticalClearance float64 `json:"verticalClearance"`

	// Search tuning. Degrees unless noted.
	GoalBias           float64 `json:"goalBias"`
	StepLength         float64 `json:"stepLength"`
	NeighborhoodRadius float64 `json:"neighborhoodRadius"`
	GoalTolerance      float64 `json:"goalTolerance"`
	SamplingMargin     float64 `json:"samplingMargin"`
	MaxIterations      int     `json:"maxIterations"`
	TimeBudgetMillis   int     `json:"timeBudgetMs"`
	Workers            int     `json:"workers"`

	// Seed for the sample stream; 0 derives one from the clock. A fixed
	// seed with Workers=1 makes the search fully deterministic.
	Seed int64 `json:"seed,omitempty"`

	// Smoothing corridor: refined points may not stray farther than
	// this from the unsmoothed path.
	SmoothTolerance float64 `json:"smoothTolerance"`

	// SplineRefinement enables the parametric-curve pass on top of the
	// shortcut smoother.
	SplineRefinement bool `json:"splineRefinement"`

	// Replanning.
	ReplanRetryLimit int `json:"replanRetryLimit"`
}

// DefaultConfig mirrors the operational defaults: 3000 mAh pack at
// 30 mAh/km, 120 m ceiling, 0.5/0.3/0.2 weights.
func DefaultConfig() Config {
	return Config{
		DistanceWeight:     0.5,
		RiskWeight:         0.3,
		NoiseWeight:        0.2,
		BatteryCapacity:    3000,
		BatteryUsageRate:   30,
		CruiseAltitude:     100,
		MaxAltitude:        120,
		VerticalClearance:  10,
		GoalBias:           0.1,
		StepLength:         0.005,
		NeighborhoodRadius: 0.01,
		GoalTolerance:      0.005,
		SamplingMargin:     0.02,
		MaxIterations:      2000,
		TimeBudgetMillis:   2000,
		Workers:            1,
		SmoothTolerance:    0.002,
		ReplanRetryLimit:   3,
	}
}

// ApplyDefaults fills unset (zero) fields from DefaultConfig. Weights
// are left alone: an explicit zero weight is meaningful.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.BatteryUsageRate == 0 {
		c.BatteryUsageRate = d.BatteryUsageRate
	}
	if c.CruiseAltitude == 0 {
		c.CruiseAltitude = d.CruiseAltitude
	}
	if c.MaxAltitude == 0 {
		c.MaxAltitude = d.MaxAltitude
	}
	if c.VerticalClearance == 0 {
		c.VerticalClearance = d.VerticalClearance
	}
	if c.GoalBias == 0 {
		c.GoalBias = d.GoalBias
	}
	if c.StepLength == 0 {
		c.StepLength = d.StepLength
	}
	if c.NeighborhoodRadius == 0 {
		c.NeighborhoodRadius = d.NeighborhoodRadius
	}
	if c.GoalTolerance == 0 {
		c.GoalTolerance = d.GoalTolerance
	}
	if c.SamplingMargin == 0 {
		c.SamplingMargin = d.SamplingMargin
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.TimeBudgetMillis == 0 {
		c.TimeBudgetMillis = d.TimeBudgetMillis
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.SmoothTolerance == 0 {
		c.SmoothTolerance = d.SmoothTolerance
	}
	if c.ReplanRetryLimit == 0 {
		c.ReplanRetryLimit = d.ReplanRetryLimit
	}
}

// TimeBudget returns the wall-clock budget for one planning call.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMillis) * time.Millisecond
}

// Validate rejects configurations the search must not run with.
func (c Config) Validate() error {
	checkWeight := func(name string, w float64) error {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s weight %v outside [0,1]", ErrInvalidConfig, name, w)
		}
		return nil
	}
	if err := checkWeight("distance", c.DistanceWeight); err != nil {
		return err
	}
	if err := checkWeight("risk", c.RiskWeight); err != nil {
		return err
	}
	if err := checkWeight("noise", c.NoiseWeight); err != nil {
		return err
	}
	if c.BatteryCapacity < 0 {
		return fmt.Errorf("%w: battery capacity %v is negative", ErrInvalidConfig, c.BatteryCapacity)
	}
	if c.BatteryUsageRate <= 0 {
		return fmt.Errorf("%w: battery usage rate %v must be positive", ErrInvalidConfig, c.BatteryUsageRate)
	}
	if c.MaxAltitude <= 0 {
		return fmt.Errorf("%w: max altitude %v must be positive", ErrInvalidConfig, c.MaxAltitude)
	}
	if c.CruiseAltitude <= 0 || c.CruiseAltitude > c.MaxAltitude {
		return fmt.Errorf("%w: cruise altitude %v outside (0, %v]", ErrInvalidConfig, c.CruiseAltitude, c.MaxAltitude)
	}
	if c.GoalBias < 0 || c.GoalBias >= 1 {
		return fmt.Errorf("%w: goal bias %v outside [0,1)", ErrInvalidConfig, c.GoalBias)
	}
	if c.StepLength <= 0 {
		return fmt.Errorf("%w: step length %v must be positive", ErrInvalidConfig, c.StepLength)
	}
	if c.NeighborhoodRadius < c.StepLength {
		return fmt.Errorf("%w: neighborhood radius %v smaller than step length %v",
			ErrInvalidConfig, c.NeighborhoodRadius, c.StepLength)
	}
	if c.GoalTolerance <= 0 {
		return fmt.Errorf("%w: goal tolerance %v must be positive", ErrInvalidConfig, c.GoalTolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations %v must be positive", ErrInvalidConfig, c.MaxIterations)
	}
	if c.TimeBudgetMillis <= 0 {
		return fmt.Errorf("%w: time budget %vms must be positive", ErrInvalidConfig, c.TimeBudgetMillis)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers %v must be positive", ErrInvalidConfig, c.Workers)
	}
	if c.SmoothTolerance <= 0 {
		return fmt.Errorf("%w: smoothing tolerance %v must be positive", ErrInvalidConfig, c.SmoothTolerance)
	}
	return nil
}

// batteryFor converts meters flown to mAh consumed.
func (c Config) batteryFor(meters float64) float64 {
	return meters / 1000 * c.BatteryUsageRate
}
