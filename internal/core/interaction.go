package core

// interactionIndex holds a rule set as a plain slice; each arc evaluation
// scans every rule.
type interactionIndex struct {
	rules []InteractionRule
}

func newInteractionIndex(rules []InteractionRule) interactionIndex {
	return interactionIndex{rules: rules}
}

// impact returns the product of impact_ratio over all rules whose source
// group matches any srcTags and target group matches any tgtTags
// (spec.md §4.3). A directional rule matches src→tgt only; a
// non-directional rule matches either direction. An empty rule set or no
// match yields the neutral multiplier 1.0. A returned 0.0 means forbidden.
func (idx interactionIndex) impact(srcTags, tgtTags []string) float64 {
	result := 1.0
	matched := false
	for _, r := range idx.rules {
		if ruleMatches(r, srcTags, tgtTags) {
			result *= r.ImpactRatio
			matched = true
		}
	}
	if !matched {
		return 1.0
	}
	return result
}

func ruleMatches(r InteractionRule, srcTags, tgtTags []string) bool {
	forward := containsTag(srcTags, r.SourceGroup) && containsTag(tgtTags, r.TargetGroup)
	if forward {
		return true
	}
	if !r.Directional {
		reverse := containsTag(tgtTags, r.SourceGroup) && containsTag(srcTags, r.TargetGroup)
		return reverse
	}
	return false
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// soilRecoveryFactor is a monotonic bonus on the fallow gap in days: 0 for
// gap < 28, ramping linearly to +10% at 60+ (spec.md §4.3).
func soilRecoveryFactor(gapDays int) float64 {
	const minGap = 28
	const maxGap = 60
	const maxBonus = 0.10

	if gapDays < minGap {
		return 1.0
	}
	if gapDays >= maxGap {
		return 1.0 + maxBonus
	}
	frac := float64(gapDays-minGap) / float64(maxGap-minGap)
	return 1.0 + maxBonus*frac
}

// applyRevenueAdjustment combines the interaction impact and soil-recovery
// factor into a final revenue, bounded by the crop's max_revenue cap.
func applyRevenueAdjustment(baseRevenue float64, crop Crop, interactionImpact, soilRecovery float64) float64 {
	revenue := baseRevenue * interactionImpact * soilRecovery
	if revenue < 0 {
		revenue = 0
	}
	if crop.HasMaxRevenue() && revenue > crop.MaxRevenue {
		revenue = crop.MaxRevenue
	}
	return revenue
}
