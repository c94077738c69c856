package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/pretextlabs/pretext/pkg/detect"
	"github.com/pretextlabs/pretext/pkg/patterns"
)

func signal(cat patterns.Category, confidence float64) detect.ThreatSignal {
	return detect.ThreatSignal{
		Category:       cat,
		Confidence:     confidence,
		MatchedRuleIDs: []string{"test-rule"},
		EvidenceSpans: []detect.EvidenceSpan{
			{RuleID: "test-rule", Subcategory: "sub", Excerpt: "excerpt", MatchStart: 0, MatchEnd: 7},
		},
	}
}

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, expected %v", what, got, want)
	}
}

func TestAggregateNoSignals(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	got, err := a.Aggregate(nil, detect.ActionFlag{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, got.Score, 0, "score")
	if got.Verdict != VerdictLow {
		t.Errorf("verdict %s, expected low", got.Verdict)
	}
	if len(got.ContributingSignals) != 0 || len(got.EvidenceTrail) != 0 {
		t.Errorf("expected empty signals and trail, got %d/%d",
			len(got.ContributingSignals), len(got.EvidenceTrail))
	}
}

func TestVerdictBandsClosedLowerBounds(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	testCases := []struct {
		name       string
		confidence float64
		want       Verdict
	}{
		{"below medium", 0.39, VerdictLow},
		{"exactly medium", 0.4, VerdictMedium},
		{"between bands", 0.55, VerdictMedium},
		{"exactly high", 0.7, VerdictHigh},
		{"above high", 0.95, VerdictHigh},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Aggregate(
				[]detect.ThreatSignal{signal(patterns.CategoryUrgency, tc.confidence)},
				detect.ActionFlag{},
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			approx(t, got.Score, tc.confidence, "score")
			if got.Verdict != tc.want {
				t.Errorf("verdict %s, expected %s", got.Verdict, tc.want)
			}
		})
	}
}

func TestActionBonusLiftsAcrossBand(t *testing.T) {
	a := NewAggregator(DefaultConfig())
	signals := []detect.ThreatSignal{signal(patterns.CategoryUrgency, 0.62)}

	plain, err := a.Aggregate(signals, detect.ActionFlag{})
	if err != nil {
		t.Fatal(err)
	}
	flagged, err := a.Aggregate(signals, detect.ActionFlag{Present: true, MatchedPhrases: []string{"click"}})
	if err != nil {
		t.Fatal(err)
	}

	if plain.Verdict != VerdictMedium {
		t.Errorf("without action flag: verdict %s, expected medium", plain.Verdict)
	}
	approx(t, flagged.Score, 0.62*1.15, "flagged score")
	if flagged.Verdict != VerdictHigh {
		t.Errorf("with action flag: verdict %s, expected high", flagged.Verdict)
	}
}

func TestEscalationPairsForceCritical(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	testCases := []struct {
		name    string
		signals []detect.ThreatSignal
	}{
		{
			name: "impersonation plus authority",
			signals: []detect.ThreatSignal{
				signal(patterns.CategoryImpersonation, 0.2),
				signal(patterns.CategoryAuthority, 0.2),
			},
		},
		{
			name: "fear plus urgency",
			signals: []detect.ThreatSignal{
				signal(patterns.CategoryFearThreat, 0.2),
				signal(patterns.CategoryUrgency, 0.2),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Aggregate(tc.signals, detect.ActionFlag{})
			if err != nil {
				t.Fatal(err)
			}
			// The combination is inherently critical even at low intensity.
			if got.Verdict != VerdictCritical {
				t.Errorf("verdict %s, expected critical", got.Verdict)
			}
			approx(t, got.Score, 0.4*1.25, "score")
		})
	}
}

func TestSpreadForcesCritical(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	// Three categories with no escalation pair among them.
	got, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryUrgency, 0.1),
		signal(patterns.CategoryImpersonation, 0.1),
		signal(patterns.CategoryRewardLure, 0.1),
	}, detect.ActionFlag{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Verdict != VerdictCritical {
		t.Errorf("verdict %s, expected critical", got.Verdict)
	}
	approx(t, got.Score, 0.3*1.3, "score")
}

func TestBonusesStack(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	// Both pairs, spread, and an action flag all apply at once.
	got, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryUrgency, 0.1),
		signal(patterns.CategoryAuthority, 0.1),
		signal(patterns.CategoryImpersonation, 0.1),
		signal(patterns.CategoryFearThreat, 0.1),
	}, detect.ActionFlag{Present: true, MatchedPhrases: []string{"verify"}})
	if err != nil {
		t.Fatal(err)
	}
	// multiplier = 1 + 0.15 + 0.25 + 0.25 + 0.3
	approx(t, got.Score, 0.4*1.95, "score")
	if got.Verdict != VerdictCritical {
		t.Errorf("verdict %s, expected critical", got.Verdict)
	}
}

func TestScoreClampsAtOne(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	got, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryUrgency, 0.9),
		signal(patterns.CategoryAuthority, 0.9),
	}, detect.ActionFlag{Present: true, MatchedPhrases: []string{"click"}})
	if err != nil {
		t.Fatal(err)
	}
	approx(t, got.Score, 1.0, "score")
}

func TestDuplicateCategoryRejected(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	_, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryUrgency, 0.3),
		signal(patterns.CategoryUrgency, 0.5),
	}, detect.ActionFlag{})

	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidInputError, got %v", err)
	}
	if invalid.Category != patterns.CategoryUrgency {
		t.Errorf("error names %s, expected urgency", invalid.Category)
	}
}

func TestSignalsOrderedCanonically(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	// Supplied in reverse canonical order.
	got, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryFearThreat, 0.1),
		signal(patterns.CategoryRewardLure, 0.1),
		signal(patterns.CategoryImpersonation, 0.1),
		signal(patterns.CategoryAuthority, 0.1),
		signal(patterns.CategoryUrgency, 0.1),
	}, detect.ActionFlag{})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.ContributingSignals) != len(patterns.CanonicalOrder) {
		t.Fatalf("expected %d signals, got %d", len(patterns.CanonicalOrder), len(got.ContributingSignals))
	}
	for i, cat := range patterns.CanonicalOrder {
		if got.ContributingSignals[i].Category != cat {
			t.Errorf("position %d: %s, expected %s", i, got.ContributingSignals[i].Category, cat)
		}
	}
}

func TestZeroConfigKeepsDefaultBonuses(t *testing.T) {
	a := NewAggregator(Config{})

	got, err := a.Aggregate(
		[]detect.ThreatSignal{signal(patterns.CategoryUrgency, 0.16)},
		detect.ActionFlag{Present: true, MatchedPhrases: []string{"click", "verify"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	// The action bonus must not vanish under a zero-value config.
	approx(t, got.Score, 0.16*1.15, "score")

	pair, err := a.Aggregate([]detect.ThreatSignal{
		signal(patterns.CategoryImpersonation, 0.2),
		signal(patterns.CategoryAuthority, 0.2),
	}, detect.ActionFlag{})
	if err != nil {
		t.Fatal(err)
	}
	approx(t, pair.Score, 0.4*1.25, "pair score")
}

func TestScoreMonotonicInAddedCategories(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	// Grow the signal set one category at a time; the score must never
	// decrease, even as pair and spread bonuses kick in or the clamp hits.
	additions := []detect.ThreatSignal{
		signal(patterns.CategoryUrgency, 0.5),
		signal(patterns.CategoryRewardLure, 0.3),
		signal(patterns.CategoryImpersonation, 0.4),
		signal(patterns.CategoryAuthority, 0.9),
		signal(patterns.CategoryFearThreat, 0.9),
	}

	var signals []detect.ThreatSignal
	prev := 0.0
	for _, add := range additions {
		signals = append(signals, add)
		got, err := a.Aggregate(signals, detect.ActionFlag{})
		if err != nil {
			t.Fatal(err)
		}
		if got.Score < prev {
			t.Errorf("adding %s dropped the score from %v to %v",
				add.Category, prev, got.Score)
		}
		prev = got.Score
	}
	// The last additions saturate the clamp.
	approx(t, prev, 1.0, "final score")
}

func TestScoreMonotonicInConfidence(t *testing.T) {
	a := NewAggregator(DefaultConfig())

	prev := -1.0
	for _, conf := range []float64{0.1, 0.2, 0.3, 0.5, 0.7, 0.9} {
		got, err := a.Aggregate([]detect.ThreatSignal{signal(patterns.CategoryUrgency, conf)}, detect.ActionFlag{})
		if err != nil {
			t.Fatal(err)
		}
		if got.Score <= prev {
			t.Errorf("score %v at confidence %v did not increase from %v", got.Score, conf, prev)
		}
		prev = got.Score
	}
}
