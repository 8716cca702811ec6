package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInteractionIndex_NeutralWhenNoRules(t *testing.T) {
	idx := newInteractionIndex(nil)
	assert.Equal(t, 1.0, idx.impact([]string{"Solanaceae"}, []string{"Solanaceae"}))
}

func TestInteractionIndex_DirectionalRuleMatchesOnlyForward(t *testing.T) {
	rules := []InteractionRule{
		{ID: "r1", SourceGroup: "Solanaceae", TargetGroup: "Solanaceae", ImpactRatio: 0.7, Directional: true},
	}
	idx := newInteractionIndex(rules)

	assert.Equal(t, 0.7, idx.impact([]string{"Solanaceae"}, []string{"Solanaceae"}))
}

func TestInteractionIndex_NonDirectionalMatchesEitherWay(t *testing.T) {
	rules := []InteractionRule{
		{ID: "r1", SourceGroup: "A", TargetGroup: "B", ImpactRatio: 1.2, Directional: false},
	}
	idx := newInteractionIndex(rules)

	assert.Equal(t, 1.2, idx.impact([]string{"A"}, []string{"B"}))
	assert.Equal(t, 1.2, idx.impact([]string{"B"}, []string{"A"}))
}

func TestInteractionIndex_ZeroForbids(t *testing.T) {
	rules := []InteractionRule{
		{ID: "r1", SourceGroup: "A", TargetGroup: "A", ImpactRatio: 0.0, Directional: true},
	}
	idx := newInteractionIndex(rules)
	assert.Equal(t, 0.0, idx.impact([]string{"A"}, []string{"A"}))
}

func TestSoilRecoveryFactor_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, soilRecoveryFactor(0))
	assert.Equal(t, 1.0, soilRecoveryFactor(27))
	assert.InDelta(t, 1.05, soilRecoveryFactor(44), 1e-9)
	assert.InDelta(t, 1.10, soilRecoveryFactor(60), 1e-9)
	assert.InDelta(t, 1.10, soilRecoveryFactor(90), 1e-9)
}

func TestApplyRevenueAdjustment_RespectsCap(t *testing.T) {
	crop := Crop{ID: "C", MaxRevenue: 100}
	revenue := applyRevenueAdjustment(200, crop, 1.0, 1.0)
	assert.Equal(t, 100.0, revenue)
}

func TestApplyRevenueAdjustment_NeverNegative(t *testing.T) {
	crop := Crop{ID: "C"}
	revenue := applyRevenueAdjustment(100, crop, 0.0, 1.0)
	assert.Equal(t, 0.0, revenue)
}
