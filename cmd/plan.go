package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensar/rescue/core/dispatch"
	"github.com/opensar/rescue/core/model"
	"github.com/opensar/rescue/infra/logger"
)

var (
	planVictims    int
	planResponders int
	planSeed       int64
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run one planning pass over a synthetic incident and print the routes",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planVictims, "victims", 12, "synthetic victims to generate")
	planCmd.Flags().IntVar(&planResponders, "responders", 3, "synthetic responders to generate")
	planCmd.Flags().Int64Var(&planSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	coord, err := dispatch.NewCoordinator(dispatch.Config{}, logger.New("plan"), nil, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	rng := rand.New(rand.NewSource(planSeed))
	now := time.Now()
	injuries := []model.InjuryLevel{model.InjuryNone, model.InjuryMinor, model.InjurySevere, model.InjuryUnconscious}
	for i := 0; i < planVictims; i++ {
		d := model.Detection{
			Location: model.Position{
				Lat: 34.0522 + rng.Float64()*0.04 - 0.02,
				Lon: -118.2437 + rng.Float64()*0.04 - 0.02,
			},
			InjuryLevel:        injuries[rng.Intn(len(injuries))],
			SurvivalLikelihood: 0.2 + rng.Float64()*0.7,
			DetectedAt:         now.Add(-time.Duration(rng.Intn(120)) * time.Minute),
		}
		if _, err := coord.OnDetection(d); err != nil {
			return err
		}
	}
	for i := 0; i < planResponders; i++ {
		r := model.Responder{
			ID: fmt.Sprintf("responder-%02d", i),
			Location: model.Position{
				Lat: 34.0522 + rng.Float64()*0.02 - 0.01,
				Lon: -118.2437 + rng.Float64()*0.02 - 0.01,
			},
			Capacity: 3 + rng.Intn(3),
			Status:   model.ResponderAvailable,
		}
		if err := coord.OnResponderStatus(r); err != nil {
			return err
		}
	}

	solutions := coord.Replan(context.Background(), now)
	out := struct {
		Routes  []model.RouteSolution `json:"routes"`
		Victims []model.Victim        `json:"victims"`
		Status  dispatch.SystemStatus `json:"status"`
	}{
		Routes:  solutions,
		Victims: coord.VictimsByPriority(now),
		Status:  coord.Status(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
