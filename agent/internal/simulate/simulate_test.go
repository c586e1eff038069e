package simulate

import (
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pspwatch/pspwatch/agent/internal/config"
	"github.com/pspwatch/pspwatch/pkg/types"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestGenerator(psps []config.PSP, seed int64) *Generator {
	g := New(psps, config.DefaultPaymentMethods, seed)
	g.now = func() time.Time { return baseTime }
	return g
}

func parseAt(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("created_at %q: %v", s, err)
	}
	return at
}

func TestPick(t *testing.T) {
	tests := []struct {
		profile string
		roll    float64
		want    string
	}{
		{config.ProfileHealthy, 0, types.StatusTimeout},
		{config.ProfileHealthy, 0.02, types.StatusError},
		{config.ProfileHealthy, 0.5, types.StatusApproved},
		{config.ProfileTimeout, 0.21, types.StatusTimeout},
		{config.ProfileTimeout, 0.36, types.StatusPending},
		{config.ProfileSlow, 0.10, types.StatusDeclined},
		{config.ProfileSlow, 0.9999, types.StatusApproved},
		{"unknown", 0, types.StatusTimeout},
	}
	for _, tc := range tests {
		if got := pick(tc.profile, tc.roll).status; got != tc.want {
			t.Errorf("pick(%s, %v): got %s, want %s", tc.profile, tc.roll, got, tc.want)
		}
	}
}

func TestTick_RatePerPSP(t *testing.T) {
	g := newTestGenerator([]config.PSP{
		{Name: "Paystack", Profile: config.ProfileHealthy, Rate: 3, Currencies: []string{"NGN"}},
		{Name: "DPO", Profile: config.ProfileSlow, Rate: 2, Currencies: []string{"KES", "ZAR"}},
		{Name: "Idle", Profile: config.ProfileHealthy, Rate: 0},
	}, 1)

	txns := g.Tick()
	if len(txns) != 5 {
		t.Fatalf("Tick: got %d transactions, want 5", len(txns))
	}

	counts := map[string]int{}
	ids := map[string]bool{}
	for _, tx := range txns {
		counts[tx.PSP]++
		if ids[tx.ID] {
			t.Errorf("duplicate id %s", tx.ID)
		}
		ids[tx.ID] = true
		if !parseAt(t, tx.CreatedAt).Equal(baseTime) {
			t.Errorf("created_at: got %s, want %s", tx.CreatedAt, baseTime)
		}
	}
	if counts["Paystack"] != 3 || counts["DPO"] != 2 || counts["Idle"] != 0 {
		t.Errorf("per-psp counts: got %v", counts)
	}
}

func TestTick_FieldsAreValid(t *testing.T) {
	g := newTestGenerator(config.DefaultPSPs, 7)
	valid := map[string]bool{}
	for _, s := range types.Statuses {
		valid[s] = true
	}
	lo, hi := decimal.NewFromInt(1), decimal.NewFromInt(200)

	for _, tx := range g.Tick() {
		if !valid[tx.Status] {
			t.Errorf("%s: invalid status %q", tx.ID, tx.Status)
		}
		amt, err := decimal.NewFromString(tx.Amount.String())
		if err != nil {
			t.Fatalf("%s: amount %q: %v", tx.ID, tx.Amount, err)
		}
		if amt.LessThan(lo) || amt.GreaterThan(hi) {
			t.Errorf("%s: amount %s outside [1, 200]", tx.ID, amt)
		}
		if _, err := strconv.Atoi(tx.ResponseTimeMs.String()); err != nil {
			t.Errorf("%s: response_time_ms %q not an integer", tx.ID, tx.ResponseTimeMs)
		}
		if len(tx.Currency) != 3 {
			t.Errorf("%s: currency %q", tx.ID, tx.Currency)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := newTestGenerator(config.DefaultPSPs, 42).Tick()
	b := newTestGenerator(config.DefaultPSPs, 42).Tick()
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different transactions")
	}
}

func TestProfiles_Distribution(t *testing.T) {
	const n = 5000
	tests := []struct {
		profile     string
		wantTimeout float64
	}{
		{config.ProfileHealthy, 0.015},
		{config.ProfileTimeout, 0.22},
		{config.ProfileSlow, 0.05},
	}
	for _, tc := range tests {
		t.Run(tc.profile, func(t *testing.T) {
			g := newTestGenerator([]config.PSP{{Name: "P", Profile: tc.profile, Rate: n}}, 3)
			var timeouts int
			var approvedRT, approved int
			for _, tx := range g.Tick() {
				switch tx.Status {
				case types.StatusTimeout:
					timeouts++
				case types.StatusApproved:
					rt, _ := strconv.Atoi(tx.ResponseTimeMs.String())
					approvedRT += rt
					approved++
				}
			}
			rate := float64(timeouts) / n
			if rate < tc.wantTimeout-0.02 || rate > tc.wantTimeout+0.02 {
				t.Errorf("timeout rate: got %.3f, want about %.3f", rate, tc.wantTimeout)
			}
			avg := float64(approvedRT) / float64(approved)
			if tc.profile == config.ProfileSlow && avg < 15000 {
				t.Errorf("slow profile approved avg: got %.0fms, want >= 15000ms", avg)
			}
			if tc.profile != config.ProfileSlow && avg > 5000 {
				t.Errorf("%s approved avg: got %.0fms, want <= 5000ms", tc.profile, avg)
			}
		})
	}
}

func TestBackfill(t *testing.T) {
	g := newTestGenerator([]config.PSP{
		{Name: "FlutterWave", Profile: config.ProfileTimeout, Rate: 1},
		{Name: "Ozow", Profile: config.ProfileHealthy, Rate: 1},
	}, 11)
	b := config.BackfillConfig{
		Enabled:       true,
		Recent:        3 * time.Hour,
		Baseline:      24 * time.Hour,
		RecentCount:   20,
		BaselineCount: 10,
	}

	txns := g.Backfill(b)
	if len(txns) != 2*(20+10) {
		t.Fatalf("Backfill: got %d transactions, want 60", len(txns))
	}

	recentStart := baseTime.Add(-b.Recent)
	baselineStart := recentStart.Add(-b.Baseline)
	var recent, baseline int
	var prev time.Time
	for i, tx := range txns {
		at := parseAt(t, tx.CreatedAt)
		if i > 0 && at.Before(prev) {
			t.Fatalf("not sorted at index %d: %s before %s", i, at, prev)
		}
		prev = at
		switch {
		case !at.Before(recentStart) && !at.After(baseTime):
			recent++
		case !at.Before(baselineStart) && !at.After(recentStart):
			baseline++
		default:
			t.Errorf("created_at %s outside both windows", at)
		}
	}
	if recent != 40 || baseline != 20 {
		t.Errorf("windows: got recent=%d baseline=%d, want 40 and 20", recent, baseline)
	}
}

func TestSetPSPs(t *testing.T) {
	g := newTestGenerator([]config.PSP{{Name: "A", Rate: 1}}, 5)
	g.SetPSPs([]config.PSP{{Name: "B", Profile: config.ProfileHealthy, Rate: 2}}, []string{"mpesa"})

	txns := g.Tick()
	if len(txns) != 2 {
		t.Fatalf("Tick after SetPSPs: got %d, want 2", len(txns))
	}
	for _, tx := range txns {
		if tx.PSP != "B" || tx.PaymentMethod != "mpesa" {
			t.Errorf("got psp=%s method=%s, want B/mpesa", tx.PSP, tx.PaymentMethod)
		}
	}
}
