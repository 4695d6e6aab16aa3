package analysis

import (
	"context"

	"github.com/newthinker/cryptosignal/internal/indicator"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Volume compares the latest volume with its average and tracks OBV.
type Volume struct {
	Period   int
	OBVSlope int
}

// NewVolume returns a Volume analyzer with a 20-bar average.
func NewVolume() *Volume {
	return &Volume{Period: 20, OBVSlope: 5}
}

func (v *Volume) Name() string { return NameVolume }

// Ratio returns the latest volume over its average, 1 when undefined.
func (v *Volume) Ratio(s *series.Series) float64 {
	vols := s.Volumes()
	avg, err := indicator.At(indicator.SMA(vols, v.Period), 0)
	if err != nil || avg <= 0 {
		return 1
	}
	return vols[len(vols)-1] / avg
}

func (v *Volume) Analyze(_ context.Context, s *series.Series) (ContextReading, error) {
	cur, err := s.Current()
	if err != nil {
		return ContextReading{}, err
	}
	prev, err := s.Previous()
	if err != nil {
		return ContextReading{}, err
	}

	ratio := v.Ratio(s)
	r := ContextReading{Metrics: map[string]float64{"ratio": ratio}}

	obv := indicator.OBV(s.Closes(), s.Volumes())
	if last, err := indicator.At(obv, 0); err == nil {
		r.Metrics["obv"] = last
		if back, err := indicator.At(obv, v.OBVSlope); err == nil {
			r.Metrics["obv_change"] = last - back
			switch {
			case last > back:
				r.signal("OBV rising")
			case last < back:
				r.signal("OBV falling")
			}
		}
	}

	switch {
	case ratio > 1.5:
		r.Label = "high"
		r.signal("High volume")
	case ratio < 0.5:
		r.Label = "low"
		r.signal("Low volume")
	default:
		r.Label = "normal"
	}

	if ratio > 1 {
		strength := clamp((ratio-1)*100, 0, 100)
		switch {
		case cur.Close > prev.Close:
			r.BuyStrength = strength
		case cur.Close < prev.Close:
			r.SellStrength = strength
		}
	}
	return r, nil
}
