package core

import "time"

// GrowthOutcome is the result of simulating a crop profile to completion.
type GrowthOutcome struct {
	CompletionDate time.Time
	GrowthDays     int
	AccumulatedGDD float64
	YieldFactor    float64
}

// growthFailureKind distinguishes the two ways a simulation can fail to
// produce an outcome, surfaced internally; neither propagates as a Go
// error — the candidate generator treats both as "no candidate here" per
// spec.md §7's propagation policy ("simulation ... never propagate errors;
// they surface option-equivalent outcomes").
type growthFailureKind int

const (
	failInsufficientWeather growthFailureKind = iota
	failDidNotComplete
)

// simulateGrowth runs the day-by-day trapezoidal GDD model of spec.md
// §4.1 starting at startDate, against series. ok is false when a day has
// no record although the series continues past it (failInsufficientWeather)
// or when required GDD is never reached before the series ends
// (failDidNotComplete) — the candidate generator decides separately, from
// the horizon's dates, whether a failure becomes spec.md §7's per-field
// WeatherGap warning; the simulator itself only reports which way it failed.
func simulateGrowth(profile CropProfile, startDate time.Time, series WeatherSeries) (GrowthOutcome, bool, growthFailureKind) {
	requiredTotal := profile.RequiredGDD()
	if requiredTotal <= 0 || len(profile.Stages) == 0 {
		return GrowthOutcome{}, false, failDidNotComplete
	}

	accumulated := 0.0
	yield := 1.0
	stageIdx := 0
	stageCumulative := make([]float64, len(profile.Stages))
	running := 0.0
	for i, s := range profile.Stages {
		running += s.Thermal.RequiredGDD
		stageCumulative[i] = running
	}

	d := startDate
	for {
		rec, found := series.ByDate(d)
		if !found {
			for _, r := range series.Records {
				if r.Date.After(d) {
					return GrowthOutcome{}, false, failInsufficientWeather
				}
			}
			return GrowthOutcome{}, false, failDidNotComplete
		}

		stage := profile.Stages[stageIdx]
		dailyGDD := dailyGDD(stage.Temperature, rec)
		impact := dailyStressImpact(stage.Temperature, rec, dailyGDD, requiredTotal)
		yield *= (1 - impact)
		if yield < 0 {
			yield = 0
		}

		accumulated += dailyGDD
		for stageIdx < len(profile.Stages)-1 && accumulated >= stageCumulative[stageIdx] {
			stageIdx++
		}

		if accumulated >= requiredTotal {
			days := int(d.Sub(startDate).Hours()/24) + 1
			return GrowthOutcome{
				CompletionDate: d,
				GrowthDays:     days,
				AccumulatedGDD: accumulated,
				YieldFactor:    yield,
			}, true, 0
		}

		d = d.AddDate(0, 0, 1)
	}
}

// dailyGDD implements the trapezoidal GDD model (spec.md §4.1 step 3a).
func dailyGDD(tp TemperatureProfile, w WeatherRecord) float64 {
	if w.MeanTemp == nil {
		return 0
	}
	tMean := *w.MeanTemp

	if tMean <= tp.Base || tMean >= tp.MaxTemperature {
		return 0
	}

	raw := tMean - tp.Base
	efficiency := trapezoidalEfficiency(tMean, tp)
	gdd := raw * efficiency
	if gdd < 0 {
		return 0
	}
	return gdd
}

// trapezoidalEfficiency is 1 inside [optimal_min, optimal_max], ramps
// linearly from 0 at base to 1 at optimal_min, and from 1 at optimal_max
// down to 0 at max_temperature.
func trapezoidalEfficiency(tMean float64, tp TemperatureProfile) float64 {
	switch {
	case tMean >= tp.OptimalMin && tMean <= tp.OptimalMax:
		return 1.0
	case tMean < tp.OptimalMin:
		span := tp.OptimalMin - tp.Base
		if span <= 0 {
			return 1.0
		}
		return (tMean - tp.Base) / span
	default: // tMean > tp.OptimalMax
		span := tp.MaxTemperature - tp.OptimalMax
		if span <= 0 {
			return 0.0
		}
		return (tp.MaxTemperature - tMean) / span
	}
}

// dailyStressImpact combines the four stress impacts of spec.md §4.1 step
// 3b into one multiplicative daily impact.
func dailyStressImpact(tp TemperatureProfile, w WeatherRecord, dailyGDDValue, requiredTotal float64) float64 {
	impact := 0.0

	meanEfficiency := 0.0
	if w.MeanTemp != nil {
		meanEfficiency = trapezoidalEfficiency(*w.MeanTemp, tp)
	}

	if w.MaxTemp != nil && *w.MaxTemp > tp.HighStressThreshold && tp.HighStressThreshold > 0 {
		diurnalRange := diurnalRange(w)
		proportion := 1.0
		if diurnalRange > 0 && w.MaxTemp != nil {
			above := *w.MaxTemp - tp.HighStressThreshold
			if above > diurnalRange {
				above = diurnalRange
			}
			proportion = above / diurnalRange
		}
		attenuation := 1 - meanEfficiency*0.7
		impact = combineImpact(impact, tp.HighTempImpact*proportion*attenuation)
	}

	if w.MeanTemp != nil && *w.MeanTemp < tp.LowStressThreshold && tp.LowStressThreshold > 0 {
		impact = combineImpact(impact, tp.LowTempImpact)
	}

	if w.MinTemp != nil && *w.MinTemp <= tp.FrostThreshold {
		impact = combineImpact(impact, tp.FrostImpact)
	}

	if tp.SterilityRiskThreshold > 0 && w.MaxTemp != nil && *w.MaxTemp >= tp.SterilityRiskThreshold {
		impact = combineImpact(impact, tp.SterilityImpact)
	}

	return impact
}

// combineImpact composes two independent daily impact probabilities into
// one multiplicative reduction, keeping the result within [0,1).
func combineImpact(existing, add float64) float64 {
	if add <= 0 {
		return existing
	}
	return 1 - (1-existing)*(1-add)
}

func diurnalRange(w WeatherRecord) float64 {
	if w.MaxTemp == nil || w.MinTemp == nil {
		return 0
	}
	r := *w.MaxTemp - *w.MinTemp
	if r <= 0 {
		return 0
	}
	return r
}
