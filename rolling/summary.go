package rolling

import (
	"encoding/json"

	"github.com/eluv-io/utc-go"
	"github.com/fxamacker/cbor/v2"
)

// Summary is a point-in-time snapshot of all single-series statistics.
// Statistics that are undefined at snapshot time (window not full,
// degenerate variance, zero peak, ...) are nil and omitted from the
// serialized forms.
type Summary struct {
	AsOf   utc.UTC `json:"as_of"`
	Period int     `json:"period"`
	Count  int     `json:"count"`

	Value    *float64 `json:"value,omitempty"`
	Sum      *float64 `json:"sum,omitempty"`
	Mean     *float64 `json:"mean,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Variance *float64 `json:"variance,omitempty"`
	Stddev   *float64 `json:"stddev,omitempty"`
	ZScore   *float64 `json:"zscore,omitempty"`
	Skew     *float64 `json:"skew,omitempty"`
	Kurt     *float64 `json:"kurt,omitempty"`
	Mode     *float64 `json:"mode,omitempty"`
	Median   *float64 `json:"median,omitempty"`
	IQR      *float64 `json:"iqr,omitempty"`
	MAD      *float64 `json:"mad,omitempty"`
	Drawdown *float64 `json:"drawdown,omitempty"`
	MaxDD    *float64 `json:"max_drawdown,omitempty"`
	Slope    *float64 `json:"linreg_slope,omitempty"`
}

// Summary captures the current statistics, stamped with the current time.
func (s *SingleStatistics) Summary() *Summary {
	res := &Summary{
		AsOf:   utc.Now(),
		Period: s.Period(),
		Count:  s.Count(),
	}
	set := func(dst **float64, get func() (float64, bool)) {
		if v, ok := get(); ok {
			*dst = &v
		}
	}
	set(&res.Value, s.Value)
	set(&res.Sum, s.Sum)
	set(&res.Mean, s.Mean)
	set(&res.Min, s.Min)
	set(&res.Max, s.Max)
	set(&res.Variance, s.Variance)
	set(&res.Stddev, s.Stddev)
	set(&res.ZScore, s.ZScore)
	set(&res.Skew, s.Skew)
	set(&res.Kurt, s.Kurt)
	set(&res.Mode, s.Mode)
	set(&res.Median, s.Median)
	set(&res.IQR, s.IQR)
	set(&res.MAD, s.MedianAbsoluteDeviation)
	set(&res.Drawdown, s.Drawdown)
	set(&res.MaxDD, s.MaxDrawdown)
	set(&res.Slope, s.LinRegSlope)
	return res
}

// String returns the summary as a JSON object.
func (s *Summary) String() string {
	bb, err := json.Marshal(s)
	if err != nil {
		return "summary: " + err.Error()
	}
	return string(bb)
}

// CBOR returns the summary in CBOR encoding.
func (s *Summary) CBOR() ([]byte, error) {
	return cbor.Marshal(s)
}

// SummaryFromCBOR decodes a summary previously encoded with CBOR.
func SummaryFromCBOR(bts []byte) (*Summary, error) {
	var res Summary
	err := cbor.Unmarshal(bts, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
