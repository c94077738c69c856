package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pretextlabs/pretext/pkg/patterns"
	"github.com/pretextlabs/pretext/pkg/risk"
	"github.com/pretextlabs/pretext/pkg/textnorm"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	kb, err := patterns.Load(patterns.BuiltinSource{})
	if err != nil {
		t.Fatalf("builtin rules failed to load: %v", err)
	}
	return New(kb, opts)
}

func defaultOptions() Options {
	return Options{Risk: risk.DefaultConfig()}
}

func TestAnalyzeCompoundPressure(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())

	raw := "URGENT: Your account will be suspended in 2 hours! As per CEO directive, confirm your password immediately."
	got := eng.Analyze(textnorm.Normalize(raw))

	if got.Verdict != risk.VerdictHigh {
		t.Errorf("verdict %s, expected high", got.Verdict)
	}
	if got.Score < 0.7 {
		t.Errorf("score %v below the high band", got.Score)
	}

	wantCategories := []patterns.Category{patterns.CategoryUrgency, patterns.CategoryAuthority}
	if len(got.ContributingSignals) != len(wantCategories) {
		t.Fatalf("expected %d signals, got %d: %+v",
			len(wantCategories), len(got.ContributingSignals), got.ContributingSignals)
	}
	for i, cat := range wantCategories {
		if got.ContributingSignals[i].Category != cat {
			t.Errorf("signal %d: %s, expected %s", i, got.ContributingSignals[i].Category, cat)
		}
	}
	if len(got.EvidenceTrail) == 0 {
		t.Error("expected a non-empty evidence trail")
	}
}

func TestAnalyzeImpersonationWithThreats(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())

	raw := "This is Microsoft Support. We detected suspicious activity on your account. Legal action will be taken unless you verify your identity immediately."
	got := eng.Analyze(textnorm.Normalize(raw))

	// Impersonation with authority, fear, and urgency alongside: the tactic
	// combination escalates to critical regardless of the numeric score.
	if got.Verdict != risk.VerdictCritical {
		t.Errorf("verdict %s, expected critical", got.Verdict)
	}

	present := make(map[patterns.Category]bool)
	for _, sig := range got.ContributingSignals {
		present[sig.Category] = true
	}
	for _, cat := range []patterns.Category{
		patterns.CategoryImpersonation,
		patterns.CategoryFearThreat,
		patterns.CategoryUrgency,
	} {
		if !present[cat] {
			t.Errorf("expected a %s signal", cat)
		}
	}
}

func TestAnalyzeBenignMessage(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())

	raw := "Team meeting moved to 3pm today, please confirm attendance."
	got := eng.Analyze(textnorm.Normalize(raw))

	if got.Verdict != risk.VerdictLow {
		t.Errorf("verdict %s, expected low", got.Verdict)
	}
	if got.Score != 0 {
		t.Errorf("score %v, expected 0", got.Score)
	}
	if len(got.ContributingSignals) != 0 {
		t.Errorf("expected no signals, got %+v", got.ContributingSignals)
	}
	// "confirm" is an action phrase, but with no signals to amplify the
	// trail stays empty.
	if len(got.EvidenceTrail) != 0 {
		t.Errorf("expected an empty trail, got %v", got.EvidenceTrail)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())

	got := eng.Analyze("")
	if got.Verdict != risk.VerdictLow || got.Score != 0 {
		t.Errorf("empty text: verdict %s score %v, expected low 0", got.Verdict, got.Score)
	}
	if len(got.ContributingSignals) != 0 || len(got.EvidenceTrail) != 0 {
		t.Error("empty text should yield no signals and no trail")
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())
	text := textnorm.Normalize("Act now!! You have won a free iPhone. This is Amazon Support, verify your account or it will be permanently locked.")

	first := eng.Analyze(text)
	for i := 0; i < 20; i++ {
		again := eng.Analyze(text)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d diverged (-first +again):\n%s", i, diff)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	opts := defaultOptions()
	sequential := newTestEngine(t, opts)
	opts.Parallel = true
	parallel := newTestEngine(t, opts)

	texts := []string{
		"",
		"lunch at noon?",
		textnorm.Normalize("URGENT: verify your account now or lose access permanently!!"),
		textnorm.Normalize("You have been selected for an exclusive reward. Claim your prize today."),
		textnorm.Normalize("This is IT support, I am your administrator. Transfer the funds per the directive."),
	}
	for _, text := range texts {
		seq := sequential.Analyze(text)
		par := parallel.Analyze(text)
		if diff := cmp.Diff(seq, par); diff != "" {
			t.Errorf("parallel diverged for %q (-sequential +parallel):\n%s", text, diff)
		}
	}
}

func TestZeroOptionsMatchDefaultCalibration(t *testing.T) {
	zero := newTestEngine(t, Options{})
	explicit := newTestEngine(t, defaultOptions())

	// An engine built from zero-value Options must score identically to one
	// given the defaults explicitly; the multiplier bonuses in particular
	// must not silently drop to zero.
	texts := []string{
		"urgent! click the link to verify",
		textnorm.Normalize("This is IT support, I am your administrator. Transfer the funds per the directive."),
		textnorm.Normalize("Team meeting moved to 3pm today, please confirm attendance."),
	}
	for _, text := range texts {
		if diff := cmp.Diff(explicit.Analyze(text), zero.Analyze(text)); diff != "" {
			t.Errorf("zero-value Options diverged for %q (-explicit +zero):\n%s", text, diff)
		}
	}
}

func TestAnalyzeScorePrecedence(t *testing.T) {
	eng := newTestEngine(t, defaultOptions())

	benign := eng.Analyze(textnorm.Normalize("Attached is the agenda for Thursday."))
	pressured := eng.Analyze(textnorm.Normalize("Urgent: respond today, this is your final notice."))

	if benign.Score >= pressured.Score {
		t.Errorf("benign score %v should be below pressured score %v", benign.Score, pressured.Score)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	kb, err := patterns.Load(patterns.BuiltinSource{})
	if err != nil {
		b.Fatal(err)
	}
	eng := New(kb, Options{Risk: risk.DefaultConfig()})
	text := textnorm.Normalize("URGENT: Your account will be suspended in 2 hours! As per CEO directive, confirm your password immediately.")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.Analyze(text)
	}
}

func BenchmarkAnalyzeParallel(b *testing.B) {
	kb, err := patterns.Load(patterns.BuiltinSource{})
	if err != nil {
		b.Fatal(err)
	}
	eng := New(kb, Options{Risk: risk.DefaultConfig(), Parallel: true})
	text := textnorm.Normalize("This is Microsoft Support. We detected suspicious activity on your account. Legal action will be taken unless you verify your identity immediately.")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.Analyze(text)
	}
}
