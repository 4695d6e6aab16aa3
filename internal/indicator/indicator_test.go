package indicator

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/cryptosignal/internal/core"
)

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func constant(n int, v float64) []float64 {
	return linear(n, v, 0)
}

func offset(xs []float64, d float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = v + d
	}
	return out
}

func TestAt(t *testing.T) {
	xs := []float64{math.NaN(), 1, 2}

	v, err := At(xs, 0)
	if err != nil || v != 2 {
		t.Errorf("At(0) = %f, %v", v, err)
	}
	if _, err := At(xs, 2); !errors.Is(err, core.ErrInsufficientHistory) {
		t.Errorf("expected insufficient history for NaN entry, got %v", err)
	}
	if _, err := At(xs, 5); !errors.Is(err, core.ErrInsufficientHistory) {
		t.Errorf("expected insufficient history for out of range, got %v", err)
	}

	cur, prev, err := Last(xs)
	if err != nil || cur != 2 || prev != 1 {
		t.Errorf("Last = %f, %f, %v", cur, prev, err)
	}
}

func TestRSI_HandComputed(t *testing.T) {
	// period 2, deltas +1 -1 +1
	// seed: gain 0.5, loss 0.5 => 50
	// next: gain (0.5+1)/2 = 0.75, loss 0.25 => RS 3 => 75
	rsi := RSI([]float64{1, 2, 1, 2}, 2)
	if Valid(rsi[0]) || Valid(rsi[1]) {
		t.Errorf("warm-up should be NaN, got %v", rsi[:2])
	}
	if !almostEqual(rsi[2], 50) {
		t.Errorf("rsi[2] = %f, want 50", rsi[2])
	}
	if !almostEqual(rsi[3], 75) {
		t.Errorf("rsi[3] = %f, want 75", rsi[3])
	}
}

func TestRSI_Saturation(t *testing.T) {
	up := RSI(linear(50, 100, 1), 14)
	if v, _ := At(up, 0); v != 100 {
		t.Errorf("all-positive deltas should give 100, got %f", v)
	}

	down := RSI(linear(50, 100, -1), 14)
	if v, _ := At(down, 0); v != 0 {
		t.Errorf("all-negative deltas should give 0, got %f", v)
	}

	flat := RSI(constant(50, 100), 14)
	if v, err := At(flat, 0); err != nil || v != 100 {
		t.Errorf("flat series should saturate to 100, got %f (%v)", v, err)
	}
}

func TestRSI_Bounds(t *testing.T) {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	for i, v := range RSI(prices, 14) {
		if Valid(v) && (v < 0 || v > 100) {
			t.Errorf("rsi[%d] = %f out of bounds", i, v)
		}
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	rsi := RSI([]float64{1, 2}, 14)
	if len(rsi) != 2 {
		t.Fatalf("expected aligned output, got %d values", len(rsi))
	}
	if _, err := At(rsi, 0); !errors.Is(err, core.ErrInsufficientHistory) {
		t.Errorf("expected insufficient history, got %v", err)
	}
}

func TestMACD_Increasing(t *testing.T) {
	res := MACD(linear(100, 100, 1), 12, 26, 9)

	if Valid(res.MACD[24]) {
		t.Error("MACD line should be undefined before slow period")
	}
	if !Valid(res.MACD[25]) || Valid(res.Signal[32]) || !Valid(res.Signal[33]) {
		t.Error("unexpected warm-up boundaries")
	}
	hist, err := At(res.Histogram, 0)
	if err != nil {
		t.Fatal(err)
	}
	if hist <= 0 {
		t.Errorf("histogram should be positive for rising prices, got %f", hist)
	}
	line, _ := At(res.MACD, 0)
	if line <= 0 {
		t.Errorf("MACD line should be positive for rising prices, got %f", line)
	}
}

func TestStochastic(t *testing.T) {
	res := Stochastic([]float64{3, 4, 5}, []float64{1, 2, 3}, []float64{2, 3, 4}, 3, 1)
	// hh 5, ll 1, close 4 => 75
	if !almostEqual(res.K[2], 75) {
		t.Errorf("K = %f, want 75", res.K[2])
	}
	if !almostEqual(res.D[2], 75) {
		t.Errorf("D = %f, want 75", res.D[2])
	}
}

func TestStochastic_FlatRange(t *testing.T) {
	flat := constant(20, 10)
	res := Stochastic(flat, flat, flat, 14, 3)
	k, err := At(res.K, 0)
	if err != nil || k != 50 {
		t.Errorf("flat range should be neutral 50, got %f (%v)", k, err)
	}
}

func TestBollinger(t *testing.T) {
	res := Bollinger([]float64{1, 2, 3}, 3, 2)
	// mean 2, sample std 1
	if res.Middle[2] != 2 || !almostEqual(res.Upper[2], 4) || !almostEqual(res.Lower[2], 0) {
		t.Errorf("bands = %f/%f/%f", res.Upper[2], res.Middle[2], res.Lower[2])
	}
}

func TestBollingerPosition_ScaleInvariant(t *testing.T) {
	prices := []float64{10, 11, 10.5, 12, 11.7, 12.4, 13, 12.2, 12.9, 13.5, 13.1, 14, 13.6, 14.2, 14.8, 14.1, 15, 15.3, 14.9, 15.6, 16}
	scaled := make([]float64, len(prices))
	for i, p := range prices {
		scaled[i] = p * 37.5
	}

	a := Bollinger(prices, 20, 2)
	b := Bollinger(scaled, 20, 2)
	pa := BollingerPosition(prices[20], a.Upper[20], a.Lower[20])
	pb := BollingerPosition(scaled[20], b.Upper[20], b.Lower[20])
	if math.Abs(pa-pb) > 1e-9 {
		t.Errorf("position not scale invariant: %f vs %f", pa, pb)
	}
}

func TestBollingerPosition_ZeroWidth(t *testing.T) {
	if got := BollingerPosition(5, 5, 5); got != 50 {
		t.Errorf("zero width should be neutral, got %f", got)
	}
}

func TestTrueRange(t *testing.T) {
	tr := TrueRange([]float64{10, 12, 11}, []float64{8, 9, 7}, []float64{9, 11, 8})
	if Valid(tr[0]) {
		t.Error("first true range should be NaN")
	}
	// bar1: max(3, |12-9|, |9-9|) = 3 ; bar2: max(4, |11-11|, |7-11|) = 4
	if tr[1] != 3 || tr[2] != 4 {
		t.Errorf("tr = %v", tr)
	}
}

func TestATR(t *testing.T) {
	closes := linear(30, 100, 1)
	atr := ATR(offset(closes, 0.5), offset(closes, -0.5), closes, 14)
	if Valid(atr[13]) {
		t.Error("ATR needs period true ranges")
	}
	v, err := At(atr, 0)
	if err != nil || !almostEqual(v, 1.5) {
		t.Errorf("ATR = %f (%v), want 1.5", v, err)
	}
}

func TestADX_Flat(t *testing.T) {
	flat := constant(40, 10)
	res := ADX(flat, flat, flat, 14)

	adx, err := At(res.ADX, 0)
	if err != nil {
		t.Fatal(err)
	}
	if adx != 0 || res.PlusDI[39] != 0 || res.MinusDI[39] != 0 {
		t.Errorf("flat series should give zero ADX/DI, got %f %f %f", adx, res.PlusDI[39], res.MinusDI[39])
	}
}

func TestADX_Uptrend(t *testing.T) {
	closes := linear(60, 100, 1)
	res := ADX(offset(closes, 0.5), offset(closes, -0.5), closes, 14)

	if Valid(res.ADX[26]) || !Valid(res.ADX[27]) {
		t.Error("ADX should first be defined at index 2*period-1")
	}
	plus, _ := At(res.PlusDI, 0)
	minus, _ := At(res.MinusDI, 0)
	adx, _ := At(res.ADX, 0)
	if plus <= minus {
		t.Errorf("+DI %f should exceed -DI %f", plus, minus)
	}
	if adx <= 25 {
		t.Errorf("ADX %f should signal a strong trend", adx)
	}
}

func TestOBV(t *testing.T) {
	obv := OBV([]float64{1, 2, 1, 1}, []float64{10, 20, 30, 40})
	if obv[1]-obv[0] != 20 {
		t.Errorf("up bar should add volume: %v", obv)
	}
	if obv[2]-obv[1] != -30 {
		t.Errorf("down bar should subtract volume: %v", obv)
	}
	if obv[3] != obv[2] {
		t.Errorf("unchanged close should keep OBV: %v", obv)
	}
}

func TestPivotPoints(t *testing.T) {
	p := PivotPoints(12, 8, 10)
	want := Pivots{P: 10, R1: 12, S1: 8, R2: 14, S2: 6, R3: 16, S3: 4}
	if p != want {
		t.Errorf("pivots = %+v, want %+v", p, want)
	}
}

func TestFibonacciLevels(t *testing.T) {
	highs := []float64{101, 110, 105}
	lows := []float64{100, 104, 102}

	fib, err := FibonacciLevels(highs, lows, 3)
	if err != nil {
		t.Fatal(err)
	}
	if fib.High != 110 || fib.Low != 100 {
		t.Errorf("range = %f-%f", fib.Low, fib.High)
	}
	if fib.Levels[3].Ratio != 0.5 || fib.Levels[3].Price != 105 {
		t.Errorf("50%% level = %+v", fib.Levels[3])
	}

	if _, err := FibonacciLevels(highs, lows, 10); !errors.Is(err, core.ErrInsufficientHistory) {
		t.Errorf("expected insufficient history, got %v", err)
	}
}

func TestPctChange(t *testing.T) {
	pc := PctChange([]float64{100, 110, 0, 50}, 1)
	if Valid(pc[0]) || !almostEqual(pc[1], 10) || !almostEqual(pc[2], -100) || Valid(pc[3]) {
		t.Errorf("unexpected pct change %v", pc)
	}
}

func TestCrosses(t *testing.T) {
	if !CrossedAbove(1, 2, 3, 2) {
		t.Error("expected upward cross")
	}
	if CrossedAbove(2, 2, 3, 2) {
		t.Error("equal previous values are not a strict cross")
	}
	if !CrossedBelow(3, 2, 1, 2) {
		t.Error("expected downward cross")
	}
}
