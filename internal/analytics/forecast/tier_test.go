package forecast

import (
	"testing"
)

func TestTierThresholds_Select(t *testing.T) {
	th := DefaultTierThresholds()
	tests := []struct {
		samples int
		want    Tier
	}{
		{0, TierFallback},
		{13, TierFallback},
		{14, TierMinimal},
		{29, TierMinimal},
		{30, TierReduced},
		{59, TierReduced},
		{60, TierFull},
		{365, TierFull},
	}

	for _, tt := range tests {
		if got := th.Select(tt.samples); got != tt.want {
			t.Errorf("Select(%d) = %s, want %s", tt.samples, got, tt.want)
		}
	}
}

func TestTierThresholds_Monotonic(t *testing.T) {
	th := DefaultTierThresholds()
	prev := 0
	for n := 0; n <= 120; n++ {
		w := th.Select(n).Width()
		if w < prev {
			t.Fatalf("Width decreased from %d to %d at n=%d", prev, w, n)
		}
		prev = w
	}
}

func TestTier_Layout(t *testing.T) {
	tests := []struct {
		tier     Tier
		width    int
		lookback int
		lower    Tier
	}{
		{TierFull, 16, 14, TierReduced},
		{TierReduced, 8, 7, TierMinimal},
		{TierMinimal, 3, 7, TierFallback},
		{TierFallback, 1, 7, TierFallback},
	}

	for _, tt := range tests {
		if tt.tier.Width() != tt.width {
			t.Errorf("%s width = %d, want %d", tt.tier, tt.tier.Width(), tt.width)
		}
		if tt.tier.Lookback() != tt.lookback {
			t.Errorf("%s lookback = %d, want %d", tt.tier, tt.tier.Lookback(), tt.lookback)
		}
		if tt.tier.Lower() != tt.lower {
			t.Errorf("%s lower = %s, want %s", tt.tier, tt.tier.Lower(), tt.lower)
		}
		if tt.tier.FeatureNames()[0] != FeatureIntercept {
			t.Errorf("%s must start with the intercept", tt.tier)
		}
	}

	if Tier("bogus").Valid() {
		t.Error("Unknown tier reported as valid")
	}
}

func TestTier_Indices(t *testing.T) {
	if got := TierMinimal.ImpactIndices(); len(got) != 0 {
		t.Errorf("Minimal tier has no impact terms, got %v", got)
	}
	if got := TierFull.ImpactIndices(); len(got) != 8 {
		t.Errorf("Full tier has 8 impact terms, got %v", got)
	}
	if got := TierReduced.WeatherIndices(); len(got) != 3 {
		t.Errorf("Reduced tier has 3 weather terms, got %v", got)
	}
	if TierFull.IndexOf(FeatureIsWeekend) != 7 {
		t.Errorf("is_weekend index = %d, want 7", TierFull.IndexOf(FeatureIsWeekend))
	}
	if TierMinimal.IndexOf(FeatureIsWeekend) != -1 {
		t.Error("Minimal tier must not carry is_weekend")
	}
}

func TestFeatureSets_MatchNames(t *testing.T) {
	full := FullFeatures{Lag1: 1, Lag7: 2, IsWeekend: 1, DryingPain: 3}
	for _, tier := range []Tier{TierFull, TierReduced, TierMinimal, TierFallback} {
		fs := full.Project(tier)
		if fs.Tier() != tier {
			t.Errorf("Project(%s) returned tier %s", tier, fs.Tier())
		}
		if len(fs.Vector()) != tier.Width() {
			t.Errorf("%s vector length %d, want %d", tier, len(fs.Vector()), tier.Width())
		}
	}

	named := NamedFeatures(full.Project(TierReduced))
	if named[FeatureLag7] != 2 || named[FeatureDryingPain] != 3 || named[FeatureIntercept] != 1 {
		t.Errorf("Unexpected named features: %v", named)
	}
}
