package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Model configuration: non-seasonal order (1,1,1) and seasonal order (1,1,1)
// with a weekly period, matching the daily-count series the aggregator
// produces. Stationarity and invertibility are not enforced; on short noisy
// series an unconstrained fit converges far more often.
const seasonalPeriod = 7

// paramBound caps coefficient magnitude during the search so the conditional
// sum of squares cannot overflow while the simplex explores.
const paramBound = 30.0

// sarimaModel holds a fitted multiplicative seasonal ARIMA model.
type sarimaModel struct {
	phi    float64 // non-seasonal AR(1)
	theta  float64 // non-seasonal MA(1)
	sphi   float64 // seasonal AR(1)
	stheta float64 // seasonal MA(1)

	y      []float64 // original series
	z      []float64 // first difference
	w      []float64 // seasonal difference of z
	resid  []float64 // in-sample one-step residuals
	sigma2 float64
}

// fitSARIMA estimates the four coefficients by minimising the conditional sum
// of squares with Nelder-Mead. The start point is fixed, so fitting is
// deterministic for a given series.
func fitSARIMA(y []float64) (*sarimaModel, error) {
	z := difference(y, 1)
	w := difference(z, seasonalPeriod)
	if len(w) < 2 {
		return nil, fmt.Errorf("series too short after differencing: %d points", len(w))
	}

	objective := func(x []float64) float64 {
		for _, p := range x {
			if math.Abs(p) > paramBound {
				return math.MaxFloat64
			}
		}
		sse := 0.0
		for _, e := range cssResiduals(w, x[0], x[1], x[2], x[3]) {
			sse += e * e
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.MaxFloat64
		}
		return sse
	}

	problem := optimize.Problem{Func: objective}
	start := []float64{0.1, 0.1, 0.1, 0.1}
	result, err := optimize.Minimize(problem, start, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) || result.F == math.MaxFloat64 {
		return nil, fmt.Errorf("optimizer diverged: objective %v", result.F)
	}

	m := &sarimaModel{
		phi:    result.X[0],
		theta:  result.X[1],
		sphi:   result.X[2],
		stheta: result.X[3],
		y:      append([]float64(nil), y...),
		z:      z,
		w:      w,
	}
	m.resid = cssResiduals(w, m.phi, m.theta, m.sphi, m.stheta)

	dof := len(m.resid) - 4
	if dof < 1 {
		dof = 1
	}
	sse := 0.0
	for _, e := range m.resid {
		sse += e * e
	}
	m.sigma2 = sse / float64(dof)
	return m, nil
}

// cssResiduals runs the one-step prediction recursion with zero
// initialisation for pre-sample values (conditional sum of squares).
func cssResiduals(w []float64, phi, theta, sphi, stheta float64) []float64 {
	e := make([]float64, len(w))
	wAt := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return w[i]
	}
	eAt := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return e[i]
	}
	for t := range w {
		pred := phi*wAt(t-1) + sphi*wAt(t-seasonalPeriod) - phi*sphi*wAt(t-seasonalPeriod-1) +
			theta*eAt(t-1) + stheta*eAt(t-seasonalPeriod) + theta*stheta*eAt(t-seasonalPeriod-1)
		e[t] = w[t] - pred
	}
	return e
}

// forecast iterates the model recursion h steps past the sample, then undoes
// both differencing passes to land back on the count scale. It also returns
// the per-step standard error from the psi-weight expansion.
func (m *sarimaModel) forecast(h int) (points, stderrs []float64) {
	nw := len(m.w)
	wAll := append(append([]float64(nil), m.w...), make([]float64, h)...)
	eAt := func(i int) float64 {
		if i < 0 || i >= len(m.resid) {
			return 0
		}
		return m.resid[i]
	}
	wAt := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return wAll[i]
	}
	for i := 0; i < h; i++ {
		t := nw + i
		wAll[t] = m.phi*wAt(t-1) + m.sphi*wAt(t-seasonalPeriod) - m.phi*m.sphi*wAt(t-seasonalPeriod-1) +
			m.theta*eAt(t-1) + m.stheta*eAt(t-seasonalPeriod) + m.theta*m.stheta*eAt(t-seasonalPeriod-1)
	}

	// Integrate the seasonal difference, then the regular one.
	zAll := append(append([]float64(nil), m.z...), make([]float64, h)...)
	nz := len(m.z)
	for i := 0; i < h; i++ {
		zAll[nz+i] = wAll[nw+i] + zAll[nz+i-seasonalPeriod]
	}
	yAll := append(append([]float64(nil), m.y...), make([]float64, h)...)
	ny := len(m.y)
	points = make([]float64, h)
	for i := 0; i < h; i++ {
		yAll[ny+i] = zAll[nz+i] + yAll[ny+i-1]
		points[i] = yAll[ny+i]
	}

	psi := m.psiWeights(h)
	stderrs = make([]float64, h)
	acc := 0.0
	for i := 0; i < h; i++ {
		acc += psi[i] * psi[i]
		stderrs[i] = math.Sqrt(m.sigma2 * acc)
	}
	return points, stderrs
}

// psiWeights expands the full model, differencing included, into its MA(∞)
// coefficients: psi(B) = theta(B)Theta(B^7) / (phi(B)Phi(B^7)(1-B)(1-B^7)).
func (m *sarimaModel) psiWeights(h int) []float64 {
	ar := make([]float64, seasonalPeriod+2)
	ar[0] = 1
	ar[1] = -m.phi
	ar[seasonalPeriod] = -m.sphi
	ar[seasonalPeriod+1] = m.phi * m.sphi

	d1 := []float64{1, -1}
	d7 := make([]float64, seasonalPeriod+1)
	d7[0] = 1
	d7[seasonalPeriod] = -1
	full := polyMul(ar, polyMul(d1, d7))

	ma := make([]float64, seasonalPeriod+2)
	ma[0] = 1
	ma[1] = m.theta
	ma[seasonalPeriod] = m.stheta
	ma[seasonalPeriod+1] = m.theta * m.stheta

	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i <= j && i < len(full); i++ {
			v -= full[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

func difference(series []float64, lag int) []float64 {
	if len(series) <= lag {
		return nil
	}
	out := make([]float64, len(series)-lag)
	for i := range out {
		out[i] = series[i+lag] - series[i]
	}
	return out
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}
