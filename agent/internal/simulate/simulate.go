package simulate

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pspwatch/pspwatch/agent/internal/config"
	"github.com/pspwatch/pspwatch/pkg/types"
)

// timeLayout renders created_at with millisecond precision.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Generator produces transactions. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	psps    []config.PSP
	methods []string
	now     func() time.Time // injectable for deterministic tests
}

// New returns a Generator for psps and methods seeded with seed.
func New(psps []config.PSP, methods []string, seed int64) *Generator {
	return &Generator{
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // not crypto
		psps:    psps,
		methods: methods,
		now:     time.Now,
	}
}

// SetPSPs replaces the simulated PSPs and payment methods, e.g. after a
// config reload.
func (g *Generator) SetPSPs(psps []config.PSP, methods []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.psps = psps
	g.methods = methods
}

// Tick returns one interval of live traffic: Rate transactions per PSP, all
// stamped now.
func (g *Generator) Tick() []types.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var out []types.Transaction
	for _, p := range g.psps {
		for i := 0; i < p.Rate; i++ {
			out = append(out, g.transaction(p, p.Profile, now))
		}
	}
	return out
}

// Backfill returns history for every PSP, sorted by created_at:
// RecentCount profile transactions spread over the last Recent, and
// BaselineCount healthy transactions spread over the Baseline before that.
func (g *Generator) Backfill(b config.BackfillConfig) []types.Transaction {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var out []types.Transaction
	for _, p := range g.psps {
		for i := 0; i < b.RecentCount; i++ {
			at := now.Add(-g.within(b.Recent))
			out = append(out, g.transaction(p, p.Profile, at))
		}
		for i := 0; i < b.BaselineCount; i++ {
			at := now.Add(-b.Recent - g.within(b.Baseline))
			out = append(out, g.transaction(p, config.ProfileHealthy, at))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// within returns a random duration in [0, d).
func (g *Generator) within(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(g.rng.Int63n(int64(d)))
}

// between returns a random int in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) transaction(p config.PSP, profile string, at time.Time) types.Transaction {
	o := pick(profile, g.rng.Float64())

	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		id = uuid.New()
	}

	// 1.00 to 200.00 in whole cents.
	amount := decimal.New(int64(g.between(100, 20000)), -2)

	method := "card"
	if len(g.methods) > 0 {
		method = g.methods[g.rng.Intn(len(g.methods))]
	}
	currency := config.DefaultCurrency
	if len(p.Currencies) > 0 {
		currency = p.Currencies[g.rng.Intn(len(p.Currencies))]
	}

	return types.Transaction{
		ID:             id.String(),
		PSP:            p.Name,
		PaymentMethod:  method,
		Amount:         types.Number(amount.StringFixed(2)),
		Currency:       currency,
		Status:         o.status,
		ResponseTimeMs: types.Number(strconv.Itoa(g.between(o.minMs, o.maxMs))),
		CreatedAt:      at.UTC().Format(timeLayout),
	}
}
