package model

import "fmt"

// Config bundles every externally-configured tuning parameter the planner,
// controllers, and executive need. It replaces the global static thresholds
// the original controller design used, threaded into construction instead,
// per the re-architecture guidance this module follows.
type Config struct {
	// POMCP search parameters.
	NumParticles    int
	MaxDepth        int
	MaxReachDepth   int
	CExploreSim     float64
	CExploitOutOfReach float64
	CExploitWithinReach float64
	CostToGoRegulatorOutOfReach float64
	CostToGoRegulatorWithinReach float64
	NEpsForIsReached float64

	// Heuristic cost parameters.
	HeurPosStep  float64
	HeurOriStep  float64
	HeurCovStep  float64
	CovConvergenceRate float64
	ScaleStabNumSteps int
	InflationForApproxStabCost float64

	RolloutSteps int
	JObs         float64

	// WInfo and WTime weight the information (covariance) term and the time
	// (step count) term in the approximate transition cost and the
	// Executive's own cost aggregation: total = WInfo*covCost + WTime*steps.
	WInfo float64
	WTime float64

	// Particle sampling.
	ParticleSigmaInflation float64

	// NeighborRadius bounds the FIRM-neighbor query expandActions issues
	// against the belief graph's NN index. NominalStepsPerEdge is the
	// trajectory length used when an edge is constructed on the fly between
	// two vertices with no precomputed roadmap edge.
	NeighborRadius      float64
	NominalStepsPerEdge int

	// RolloutPolicy selects the rollout action-selection rule: "importance"
	// (default, §4.6.3 importance-sampled weights) or "baseline" (always
	// follow the roadmap's baseline feedback edge).
	RolloutPolicy string

	// Execution / controller thresholds.
	NodeReachedDistance           float64
	NodeReachedAngle              float64
	MaxTries                      int
	NominalTrajDeviationThreshold float64
	MaxExecTimeScale              float64

	// CostBias is the small positive value the controllers add to their
	// accumulated covariance cost on every step; the Executive subtracts it
	// again when aggregating execution cost, so zero-length trajectories
	// score at zero.
	CostBias float64

	Tolerances EquivalenceTolerances
}

// DefaultConfig returns a Config with the spec's documented defaults for
// every optional parameter.
func DefaultConfig() Config {
	return Config{
		NumParticles:                 100,
		MaxDepth:                     10,
		MaxReachDepth:                20,
		CExploreSim:                  1.0,
		CExploitOutOfReach:           1.0,
		CExploitWithinReach:          1.0,
		CostToGoRegulatorOutOfReach:  1.0,
		CostToGoRegulatorWithinReach: 1.0,
		NEpsForIsReached:             2.0,
		HeurPosStep:                  1.0,
		HeurOriStep:                  1.0,
		HeurCovStep:                  1.0,
		CovConvergenceRate:           0.9,
		ScaleStabNumSteps:            1,
		InflationForApproxStabCost:   1.0,
		RolloutSteps:                 5,
		JObs:                         1000,
		WInfo:                        1.0,
		WTime:                        1.0,
		ParticleSigmaInflation:       3.0,
		NeighborRadius:               5.0,
		NominalStepsPerEdge:          10,
		RolloutPolicy:                "importance",
		NodeReachedDistance:          0.1,
		NodeReachedAngle:             0.1,
		MaxTries:                     3,
		NominalTrajDeviationThreshold: 1.0,
		MaxExecTimeScale:             3.0,
		CostBias:                     1e-3,
		Tolerances: EquivalenceTolerances{
			EpsPos: 0.1,
			EpsOri: 0.1,
			EpsCov: 0.1,
		},
	}
}

// Validate checks that every required parameter is present and sane,
// returning a wrapped ErrConfigMissing-class error otherwise. Fatal at
// startup per the error handling design.
func (c Config) Validate() error {
	if c.MaxReachDepth <= c.MaxDepth {
		return fmt.Errorf("config: maxFIRMReachDepth (%d) must exceed maxPOMCPDepth (%d): %w", c.MaxReachDepth, c.MaxDepth, ErrConfigMissing)
	}
	if c.CovConvergenceRate <= 0 || c.CovConvergenceRate >= 1 {
		return fmt.Errorf("config: covConvergenceRate must be in (0,1), got %v: %w", c.CovConvergenceRate, ErrConfigMissing)
	}
	if c.NumParticles < 0 {
		return fmt.Errorf("config: numPOMCPParticles must be >= 0: %w", ErrConfigMissing)
	}
	if c.RolloutPolicy != "importance" && c.RolloutPolicy != "baseline" {
		return fmt.Errorf("config: rolloutPolicy must be \"importance\" or \"baseline\", got %q: %w", c.RolloutPolicy, ErrConfigMissing)
	}
	return nil
}
