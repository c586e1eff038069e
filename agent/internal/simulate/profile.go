package simulate

import (
	"github.com/pspwatch/pspwatch/agent/internal/config"
	"github.com/pspwatch/pspwatch/pkg/types"
)

// outcome is one slice of a profile's status distribution. A roll below upTo
// (and above the previous outcome's upTo) selects it.
type outcome struct {
	upTo   float64
	status string
	minMs  int
	maxMs  int
}

var profiles = map[string][]outcome{
	config.ProfileHealthy: {
		{0.015, types.StatusTimeout, 20000, 30000},
		{0.025, types.StatusError, 200, 2000},
		{0.12, types.StatusDeclined, 800, 3000},
		{0.16, types.StatusPending, 1000, 3000},
		{1, types.StatusApproved, 1000, 5000},
	},
	config.ProfileTimeout: {
		{0.22, types.StatusTimeout, 25000, 35000},
		{0.27, types.StatusError, 500, 3000},
		{0.35, types.StatusDeclined, 1000, 4000},
		{0.38, types.StatusPending, 2000, 5000},
		{1, types.StatusApproved, 1000, 5000},
	},
	config.ProfileSlow: {
		{0.05, types.StatusTimeout, 28000, 35000},
		{0.08, types.StatusError, 8000, 15000},
		{0.18, types.StatusDeclined, 12000, 22000},
		{0.22, types.StatusPending, 10000, 20000},
		{1, types.StatusApproved, 15000, 25000},
	},
}

// pick returns the outcome selected by roll in [0, 1).
func pick(profile string, roll float64) outcome {
	dist, ok := profiles[profile]
	if !ok {
		dist = profiles[config.ProfileHealthy]
	}
	for _, o := range dist {
		if roll < o.upTo {
			return o
		}
	}
	return dist[len(dist)-1]
}
