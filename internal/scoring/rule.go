package scoring

import (
	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Indicator names used as profile keys and reading names.
const (
	RSI        = "rsi"
	MACD       = "macd"
	Stochastic = "stochastic"
	Bollinger  = "bollinger"
	ADX        = "adx"
	Volume     = "volume"
	MACross    = "ma_cross"
)

// Rule scores one indicator against the latest two bars of a series.
type Rule interface {
	Name() string
	Evaluate(s *series.Series, weight float64) IndicatorReading
}

// DefaultRules returns the built-in rule set keyed by name.
func DefaultRules() map[string]Rule {
	rules := []Rule{
		RSIRule{Period: 14},
		MACDRule{Fast: 12, Slow: 26, Signal: 9},
		StochasticRule{KPeriod: 14, DPeriod: 3},
		BollingerRule{Period: 20, K: 2, TouchLookback: 3},
		ADXRule{Period: 14, Threshold: 25},
		VolumeRule{Period: 20},
		MACrossRule{Fast: 9, Slow: 21},
	}
	out := make(map[string]Rule, len(rules))
	for _, r := range rules {
		out[r.Name()] = r
	}
	return out
}

// RSIRule scores Wilder RSI against oversold/overbought bands.
type RSIRule struct {
	Period int
}

func (r RSIRule) Name() string { return RSI }

func (r RSIRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	cur, prev, err := indicator.Last(indicator.RSI(s.Closes(), r.Period))
	if err != nil {
		return insufficient(RSI, w)
	}
	rising := cur > prev

	return IndicatorReading{
		Name:     RSI,
		Value:    cur,
		Previous: prev,
		Flag:     trendFlag(cur, prev),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{cur < 30, 1},
			tier{cur < 40, 0.75},
			tier{rising && cur < 50, 0.25},
		),
		SellStrength: ladder(w,
			tier{cur > 70, 1},
			tier{cur > 60, 0.75},
			tier{!rising && cur > 50, 0.25},
		),
	}
}

// MACDRule scores signal-line crosses and histogram momentum.
type MACDRule struct {
	Fast, Slow, Signal int
}

func (r MACDRule) Name() string { return MACD }

func (r MACDRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	res := indicator.MACD(s.Closes(), r.Fast, r.Slow, r.Signal)
	line, pLine, err1 := indicator.Last(res.MACD)
	sig, pSig, err2 := indicator.Last(res.Signal)
	hist, pHist, err3 := indicator.Last(res.Histogram)
	if err1 != nil || err2 != nil || err3 != nil {
		return insufficient(MACD, w)
	}

	bull := indicator.CrossedAbove(pLine, pSig, line, sig)
	bear := indicator.CrossedBelow(pLine, pSig, line, sig)

	return IndicatorReading{
		Name:     MACD,
		Value:    line,
		Previous: pLine,
		Flag:     crossFlag(bull, bear, hist, pHist),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{bull, 1},
			tier{hist > 0 && hist > pHist, 0.75},
			tier{hist > 0, 0.25},
		),
		SellStrength: ladder(w,
			tier{bear, 1},
			tier{hist < 0 && hist < pHist, 0.75},
			tier{hist < 0, 0.25},
		),
		Metrics: map[string]float64{"signal": sig, "histogram": hist},
	}
}

// StochasticRule scores %K/%D crosses and extreme %K.
type StochasticRule struct {
	KPeriod, DPeriod int
}

func (r StochasticRule) Name() string { return Stochastic }

func (r StochasticRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	res := indicator.Stochastic(s.Highs(), s.Lows(), s.Closes(), r.KPeriod, r.DPeriod)
	k, pk, err1 := indicator.Last(res.K)
	d, pd, err2 := indicator.Last(res.D)
	if err1 != nil || err2 != nil {
		return insufficient(Stochastic, w)
	}

	bull := indicator.CrossedAbove(pk, pd, k, d)
	bear := indicator.CrossedBelow(pk, pd, k, d)

	return IndicatorReading{
		Name:     Stochastic,
		Value:    k,
		Previous: pk,
		Flag:     crossFlag(bull, bear, k, pk),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{bull, 1},
			tier{k < 20, 2.0 / 3},
			tier{k > pk && k < 40, 1.0 / 3},
		),
		SellStrength: ladder(w,
			tier{bear, 1},
			tier{k > 80, 2.0 / 3},
			tier{k < pk && k > 60, 1.0 / 3},
		),
		Metrics: map[string]float64{"d": d},
	}
}

// BollingerRule scores band touches and the price position inside the band.
// A zero-width band is degenerate input and scores neutral.
type BollingerRule struct {
	Period        int
	K             float64
	TouchLookback int
}

func (r BollingerRule) Name() string { return Bollinger }

func (r BollingerRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	closes := s.Closes()
	bands := indicator.Bollinger(closes, r.Period, r.K)
	upper, err1 := indicator.At(bands.Upper, 0)
	lower, err2 := indicator.At(bands.Lower, 0)
	middle, err3 := indicator.At(bands.Middle, 0)
	price, prev, err4 := indicator.Last(closes)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return insufficient(Bollinger, w)
	}

	pos := indicator.BollingerPosition(price, upper, lower)
	reading := IndicatorReading{
		Name:     Bollinger,
		Value:    pos,
		Previous: indicator.BollingerPosition(prev, upper, lower),
		Weight:   w,
		Metrics: map[string]float64{
			"upper":  upper,
			"middle": middle,
			"lower":  lower,
		},
	}
	if middle != 0 {
		reading.Metrics["bandwidth"] = (upper - lower) / middle * 100
	}
	if upper-lower <= 0 {
		return reading
	}

	lowerTouch, upperTouch := false, false
	n := s.Len()
	for j := 0; j < r.TouchLookback && j < n; j++ {
		i := n - 1 - j
		b := s.Bar(i)
		if indicator.Valid(bands.Lower[i]) && b.Low <= bands.Lower[i] {
			lowerTouch = true
		}
		if indicator.Valid(bands.Upper[i]) && b.High >= bands.Upper[i] {
			upperTouch = true
		}
	}
	momentum := price > prev
	reading.Flag = trendFlag(price, prev)

	reading.BuyStrength = ladder(w,
		tier{lowerTouch && momentum, 1},
		tier{pos < 10, 0.8},
		tier{pos < 30, 0.6},
	)
	reading.SellStrength = ladder(w,
		tier{upperTouch && !momentum, 1},
		tier{pos > 90, 0.8},
		tier{pos > 70, 0.6},
	)
	return reading
}

// ADXRule scores directional indicator crosses and strong trends.
type ADXRule struct {
	Period    int
	Threshold float64
}

func (r ADXRule) Name() string { return ADX }

func (r ADXRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	res := indicator.ADX(s.Highs(), s.Lows(), s.Closes(), r.Period)
	adx, pAdx, err1 := indicator.Last(res.ADX)
	plus, pPlus, err2 := indicator.Last(res.PlusDI)
	minus, pMinus, err3 := indicator.Last(res.MinusDI)
	if err1 != nil || err2 != nil || err3 != nil {
		return insufficient(ADX, w)
	}

	bull := indicator.CrossedAbove(pPlus, pMinus, plus, minus)
	bear := indicator.CrossedBelow(pPlus, pMinus, plus, minus)

	return IndicatorReading{
		Name:     ADX,
		Value:    adx,
		Previous: pAdx,
		Flag:     crossFlag(bull, bear, adx, pAdx),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{bull, 1},
			tier{adx > r.Threshold && plus > minus, 2.0 / 3},
		),
		SellStrength: ladder(w,
			tier{bear, 1},
			tier{adx > r.Threshold && minus > plus, 2.0 / 3},
		),
		Metrics: map[string]float64{"plus_di": plus, "minus_di": minus},
	}
}

// VolumeRule scores volume spikes in the direction of the last price move.
type VolumeRule struct {
	Period int
}

func (r VolumeRule) Name() string { return Volume }

// VolumeRatio returns the latest volume over its simple average, or 1 when
// the average is unavailable or zero.
func VolumeRatio(s *series.Series, period int) float64 {
	vols := s.Volumes()
	avg, err := indicator.At(indicator.SMA(vols, period), 0)
	if err != nil || avg <= 0 {
		return 1
	}
	return vols[len(vols)-1] / avg
}

func (r VolumeRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	cur, err1 := s.Current()
	prev, err2 := s.Previous()
	if err1 != nil || err2 != nil {
		return insufficient(Volume, w)
	}
	ratio := VolumeRatio(s, r.Period)
	up := cur.Close > prev.Close

	return IndicatorReading{
		Name:     Volume,
		Value:    ratio,
		Previous: 1,
		Flag:     trendFlag(cur.Close, prev.Close),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{ratio > 1.5 && up, 1},
			tier{ratio > 1.2 && up, 0.5},
		),
		SellStrength: ladder(w,
			tier{ratio > 1.5 && !up, 1},
			tier{ratio > 1.2 && !up, 0.5},
		),
		Metrics: map[string]float64{"volume": cur.Volume},
	}
}

// MACrossRule scores fast/slow simple moving average crosses.
type MACrossRule struct {
	Fast, Slow int
}

func (r MACrossRule) Name() string { return MACross }

func (r MACrossRule) Evaluate(s *series.Series, w float64) IndicatorReading {
	closes := s.Closes()
	fast, pFast, err1 := indicator.Last(indicator.SMA(closes, r.Fast))
	slow, pSlow, err2 := indicator.Last(indicator.SMA(closes, r.Slow))
	if err1 != nil || err2 != nil {
		return insufficient(MACross, w)
	}

	bull := pFast <= pSlow && fast > slow
	bear := pFast >= pSlow && fast < slow

	return IndicatorReading{
		Name:     MACross,
		Value:    fast - slow,
		Previous: pFast - pSlow,
		Flag:     crossFlag(bull, bear, fast-slow, pFast-pSlow),
		Weight:   w,
		BuyStrength: ladder(w,
			tier{bull, 1},
			tier{fast > slow, 0.5},
		),
		SellStrength: ladder(w,
			tier{bear, 1},
			tier{fast < slow, 0.5},
		),
		Metrics: map[string]float64{"fast": fast, "slow": slow},
	}
}
