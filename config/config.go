// Package config loads a model.Config from a JSON document, the same
// decode-then-populate shape the teacher's scenario loader used for its
// own structured documents. Obstacles and the roadmap are not part of the
// document.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/firm-pomcp-planner/internal/logging"
	"github.com/signalsfoundry/firm-pomcp-planner/model"
)

// Document is the on-disk JSON shape: every field optional, falling back
// to model.DefaultConfig()'s value when absent. Field names mirror Config's
// so a document can set exactly the subset of parameters a scenario cares
// about.
type Document struct {
	NumParticles    *int     `json:"numParticles,omitempty"`
	MaxDepth        *int     `json:"maxDepth,omitempty"`
	MaxReachDepth   *int     `json:"maxReachDepth,omitempty"`
	CExploreSim     *float64 `json:"cExploreSim,omitempty"`

	CExploitOutOfReach           *float64 `json:"cExploitOutOfReach,omitempty"`
	CExploitWithinReach          *float64 `json:"cExploitWithinReach,omitempty"`
	CostToGoRegulatorOutOfReach  *float64 `json:"costToGoRegulatorOutOfReach,omitempty"`
	CostToGoRegulatorWithinReach *float64 `json:"costToGoRegulatorWithinReach,omitempty"`
	NEpsForIsReached             *float64 `json:"nEpsForIsReached,omitempty"`

	HeurPosStep                *float64 `json:"heurPosStep,omitempty"`
	HeurOriStep                *float64 `json:"heurOriStep,omitempty"`
	HeurCovStep                *float64 `json:"heurCovStep,omitempty"`
	CovConvergenceRate         *float64 `json:"covConvergenceRate,omitempty"`
	ScaleStabNumSteps          *int     `json:"scaleStabNumSteps,omitempty"`
	InflationForApproxStabCost *float64 `json:"inflationForApproxStabCost,omitempty"`

	RolloutSteps *int     `json:"rolloutSteps,omitempty"`
	JObs         *float64 `json:"jObs,omitempty"`
	WInfo        *float64 `json:"wInfo,omitempty"`
	WTime        *float64 `json:"wTime,omitempty"`

	ParticleSigmaInflation *float64 `json:"particleSigmaInflation,omitempty"`
	NeighborRadius         *float64 `json:"neighborRadius,omitempty"`
	NominalStepsPerEdge    *int     `json:"nominalStepsPerEdge,omitempty"`
	RolloutPolicy          *string  `json:"rolloutPolicy,omitempty"`

	NodeReachedDistance           *float64 `json:"nodeReachedDistance,omitempty"`
	NodeReachedAngle              *float64 `json:"nodeReachedAngle,omitempty"`
	MaxTries                      *int     `json:"maxTries,omitempty"`
	NominalTrajDeviationThreshold *float64 `json:"nominalTrajDeviationThreshold,omitempty"`
	MaxExecTimeScale              *float64 `json:"maxExecTimeScale,omitempty"`
	CostBias                      *float64 `json:"costBias,omitempty"`

	Tolerances *TolerancesDocument `json:"tolerances,omitempty"`
}

// TolerancesDocument mirrors model.EquivalenceTolerances.
type TolerancesDocument struct {
	EpsPos     *float64 `json:"epsPos,omitempty"`
	EpsOri     *float64 `json:"epsOri,omitempty"`
	EpsCov     *float64 `json:"epsCov,omitempty"`
	RelaxedCov *bool    `json:"relaxedCov,omitempty"`
}

// Load reads and decodes a Document from path, applies it over
// model.DefaultConfig(), and validates the result.
func Load(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (model.Config, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return model.Config{}, fmt.Errorf("config: decode: %w", err)
	}

	cfg := model.DefaultConfig()
	doc.applyTo(&cfg)

	if err := cfg.Validate(); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func (d *Document) applyTo(cfg *model.Config) {
	setInt(&cfg.NumParticles, d.NumParticles)
	setInt(&cfg.MaxDepth, d.MaxDepth)
	setInt(&cfg.MaxReachDepth, d.MaxReachDepth)
	setFloat(&cfg.CExploreSim, d.CExploreSim)

	setFloat(&cfg.CExploitOutOfReach, d.CExploitOutOfReach)
	setFloat(&cfg.CExploitWithinReach, d.CExploitWithinReach)
	setFloat(&cfg.CostToGoRegulatorOutOfReach, d.CostToGoRegulatorOutOfReach)
	setFloat(&cfg.CostToGoRegulatorWithinReach, d.CostToGoRegulatorWithinReach)
	setFloat(&cfg.NEpsForIsReached, d.NEpsForIsReached)

	setFloat(&cfg.HeurPosStep, d.HeurPosStep)
	setFloat(&cfg.HeurOriStep, d.HeurOriStep)
	setFloat(&cfg.HeurCovStep, d.HeurCovStep)
	setFloat(&cfg.CovConvergenceRate, d.CovConvergenceRate)
	setInt(&cfg.ScaleStabNumSteps, d.ScaleStabNumSteps)
	setFloat(&cfg.InflationForApproxStabCost, d.InflationForApproxStabCost)

	setInt(&cfg.RolloutSteps, d.RolloutSteps)
	setFloat(&cfg.JObs, d.JObs)
	setFloat(&cfg.WInfo, d.WInfo)
	setFloat(&cfg.WTime, d.WTime)

	setFloat(&cfg.ParticleSigmaInflation, d.ParticleSigmaInflation)
	setFloat(&cfg.NeighborRadius, d.NeighborRadius)
	setInt(&cfg.NominalStepsPerEdge, d.NominalStepsPerEdge)
	setString(&cfg.RolloutPolicy, d.RolloutPolicy)

	setFloat(&cfg.NodeReachedDistance, d.NodeReachedDistance)
	setFloat(&cfg.NodeReachedAngle, d.NodeReachedAngle)
	setInt(&cfg.MaxTries, d.MaxTries)
	setFloat(&cfg.NominalTrajDeviationThreshold, d.NominalTrajDeviationThreshold)
	setFloat(&cfg.MaxExecTimeScale, d.MaxExecTimeScale)
	setFloat(&cfg.CostBias, d.CostBias)

	if d.Tolerances != nil {
		setFloat(&cfg.Tolerances.EpsPos, d.Tolerances.EpsPos)
		setFloat(&cfg.Tolerances.EpsOri, d.Tolerances.EpsOri)
		setFloat(&cfg.Tolerances.EpsCov, d.Tolerances.EpsCov)
		if d.Tolerances.RelaxedCov != nil {
			cfg.Tolerances.RelaxedCov = *d.Tolerances.RelaxedCov
		}
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// LoadOrDefault is the fatal-at-startup helper cmd/executive uses: it
// returns model.DefaultConfig() when path is empty, and treats an open,
// decode, or validation failure as fatal (logged, then os.Exit(1)), per the
// error handling design.
func LoadOrDefault(path string, log logging.Logger) model.Config {
	if path == "" {
		return model.DefaultConfig()
	}
	cfg, err := Load(path)
	if err != nil {
		log.Error(context.Background(), "config: failed to load", logging.String("path", path), logging.Any("error", err))
		os.Exit(1)
	}
	return cfg
}
