package stats

import (
	"math"

	descstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalityAlpha is the Jarque–Bera significance level below which the trial
// estimates are flagged as not normally distributed.
const normalityAlpha = 0.05

// Shape describes how far the trial estimates are from normal. The
// t-interval assumes approximately normal estimates, which holds for large
// point counts; few points per trial give a visibly discrete, skewed sample.
type Shape struct {
	Skewness       float64 `json:"skewness"`
	ExcessKurtosis float64 `json:"excess_kurtosis"`
	JarqueBera     float64 `json:"jarque_bera"`
	PValue         float64 `json:"p_value"`
	LooksNormal    bool    `json:"looks_normal"`
	Outliers       int     `json:"outliers"` // outside 1.5 IQR of the quartiles
}

// ShapeOf analyses the distribution of values. Fewer than 4 values or a
// constant sample carry no shape information and report as normal with p = 1.
func ShapeOf(values []float64) Shape {
	if len(values) < 4 || allEqual(values) {
		return Shape{PValue: 1, LooksNormal: true}
	}

	n := float64(len(values))
	skew := stat.Skew(values, nil)
	kurt := stat.ExKurtosis(values, nil)

	jb := n / 6 * (skew*skew + kurt*kurt/4)
	p := distuv.ChiSquared{K: 2}.Survival(jb)
	if math.IsNaN(p) {
		p = 0
	}

	return Shape{
		Skewness:       skew,
		ExcessKurtosis: kurt,
		JarqueBera:     jb,
		PValue:         p,
		LooksNormal:    p > normalityAlpha,
		Outliers:       countOutliers(values),
	}
}

func countOutliers(values []float64) int {
	q1, err := descstats.PercentileNearestRank(values, 25)
	if err != nil {
		return 0
	}
	q3, err := descstats.PercentileNearestRank(values, 75)
	if err != nil {
		return 0
	}

	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	outliers := 0
	for _, v := range values {
		if v < lower || v > upper {
			outliers++
		}
	}
	return outliers
}
