// Command executive runs the belief-space executive against the module's
// reference planar fixture: a unicycle motion model, a direct-pose
// observation model, a single circular obstacle, and the S/A/B/G
// unit-square roadmap, exposing Prometheus metrics on /metrics while it
// runs. Grounded on the teacher's flag-based simulator entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/firm-pomcp-planner/config"
	"github.com/signalsfoundry/firm-pomcp-planner/core"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/executive"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/logging"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/observability"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/planner"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/roadmap"
	"github.com/signalsfoundry/firm-pomcp-planner/internal/truestate"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config document (optional; defaults used otherwise)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	maxIterations := flag.Int("max-iterations", 200, "maximum executive iterations before giving up")
	seed := flag.Int64("seed", 1, "random seed for particle sampling and the reference observation noise")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg := config.LoadOrDefault(*configPath, log)

	rm, err := roadmap.NewFixtureRoadmap()
	if err != nil {
		log.Error(ctx, "executive: failed to build fixture roadmap", logging.Any("error", err))
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	motion := core.NewPlanarMotionModel(0.1, mat.NewSymDense(3, []float64{
		0.001, 0, 0,
		0, 0.001, 0,
		0, 0, 0.0005,
	}))
	obs := core.NewPlanarObservationModel(mat.NewSymDense(3, []float64{
		0.01, 0, 0,
		0, 0.01, 0,
		0, 0, 0.005,
	}), rand.New(rand.NewSource(*seed + 1)))
	validity := core.NewPlanarValidityOracle([]core.Obstacle{
		{Center: core.Pose{X: 0.5, Y: 0.5}, Radius: 0.05},
	})
	filter := core.NewEKFFilter(motion)

	startBelief := rm.Beliefs[rm.Start]
	initialTrue := mat.NewVecDense(startBelief.Mean.Len(), nil)
	initialTrue.CloneFromVec(startBelief.Mean)
	trueState := truestate.New(initialTrue)

	p := planner.NewPlanner(rm, cfg, motion, obs, validity, filter, trueState, rng)

	metrics, err := observability.NewPlannerCollector(nil)
	if err != nil {
		log.Error(ctx, "executive: failed to register metrics", logging.Any("error", err))
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		log.Info(ctx, "executive: serving metrics", logging.String("addr", *metricsAddr))
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Error(ctx, "executive: metrics server exited", logging.Any("error", err))
		}
	}()

	exec := executive.New(p, log, metrics)
	result := exec.Run(ctx, *maxIterations)

	if result.TerminalError != nil {
		log.Error(ctx, "executive: run ended with error",
			logging.Any("error", result.TerminalError),
			logging.Int("iterations", result.Iterations),
			logging.Any("total_cost", result.TotalCost))
		os.Exit(1)
	}

	fmt.Printf("reached=%v iterations=%d total_cost=%.4f\n", result.Reached, result.Iterations, result.TotalCost)
}
