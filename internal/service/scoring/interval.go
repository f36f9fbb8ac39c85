package scoring

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Policy 区间划分方式
type Policy int

const (
	// PolicyFixed 固定名次区间（按总数 20 为界选择两套预设）
	PolicyFixed Policy = iota
	// PolicyPercentage 百分比区间（10/14/16/20/16/14/10）
	PolicyPercentage
)

func (p Policy) String() string {
	switch p {
	case PolicyFixed:
		return "fixed"
	case PolicyPercentage:
		return "percentage"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// specialBonus 指定单位在非零区间的加分
const specialBonus = 0.9

// smallPopulationThreshold 固定区间预设的人数分界（含）
const smallPopulationThreshold = 20

var (
	// ErrInvalidPopulation 总数小于 1
	ErrInvalidPopulation = eris.New("population size must be at least 1")
	// ErrRankOutOfRange 名次不在 [1, N] 内，说明区间表构建有误
	ErrRankOutOfRange = eris.New("rank out of range")
)

// Band 名次区间 [Start, End] 及对应得分
type Band struct {
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Regular float64 `json:"regular"`
	Special float64 `json:"special"`
}

// Contains 名次是否落在区间内
func (b Band) Contains(rank int) bool {
	return rank >= b.Start && rank <= b.End
}

// Len 区间包含的名次数
func (b Band) Len() int {
	return b.End - b.Start + 1
}

// IntervalTable 覆盖 1..N 的有序、连续、不重叠的区间表
type IntervalTable struct {
	Size   int    `json:"size"`
	Policy Policy `json:"policy"`
	Bands  []Band `json:"bands"`
}

// tier 预设区间：名次上限（最后一档为 0 表示延伸到 N）与常规得分
type tier struct {
	end     int
	regular float64
}

var (
	smallPresets = []tier{{3, 8}, {7, 6}, {12, 5}, {18, 4}, {25, 3}, {30, 2}, {0, 0}}
	largePresets = []tier{{18, 8}, {43, 6}, {71, 5}, {106, 4}, {134, 3}, {159, 2}, {0, 0}}

	percentageFractions = []float64{0.10, 0.14, 0.16, 0.20, 0.16, 0.14, 0.10}
	percentageScores    = []float64{8, 6, 5, 4, 3, 2, 0}
)

// BuildIntervalTable 按总数与划分方式构建区间表
func BuildIntervalTable(n int, policy Policy) (*IntervalTable, error) {
	if n < 1 {
		return nil, eris.Wrapf(ErrInvalidPopulation, "got %d", n)
	}

	var bands []Band
	switch policy {
	case PolicyFixed:
		bands = fixedBands(n)
	case PolicyPercentage:
		bands = percentageBands(n)
	default:
		return nil, eris.Errorf("unknown interval policy %d", int(policy))
	}

	return &IntervalTable{
		Size:   n,
		Policy: policy,
		Bands:  bands,
	}, nil
}

func fixedBands(n int) []Band {
	presets := largePresets
	if n <= smallPopulationThreshold {
		presets = smallPresets
	}

	bands := make([]Band, 0, len(presets))
	start := 1
	for i, t := range presets {
		end := t.end
		if i == len(presets)-1 || end > n {
			end = n
		}
		bands = append(bands, newBand(start, end, t.regular))
		if end == n {
			break
		}
		start = end + 1
	}
	return bands
}

// percentageBands 逐段累加长度，避免各累计边界独立取整造成的重叠或空档
func percentageBands(n int) []Band {
	bands := make([]Band, 0, len(percentageFractions))
	start := 1
	for i, frac := range percentageFractions {
		length := int(math.RoundToEven(frac * float64(n)))
		if length < 1 {
			length = 1
		}
		end := start + length - 1
		if i == len(percentageFractions)-1 || end > n {
			end = n
		}
		bands = append(bands, newBand(start, end, percentageScores[i]))
		if end == n {
			break
		}
		start = end + 1
	}
	return bands
}

func newBand(start, end int, regular float64) Band {
	special := 0.0
	if regular > 0 {
		special = regular + specialBonus
	}
	return Band{
		Start:   start,
		End:     end,
		Regular: regular,
		Special: special,
	}
}

// Band 返回名次所在区间
func (t *IntervalTable) Band(rank int) (Band, error) {
	if rank < 1 || rank > t.Size {
		return Band{}, eris.Wrapf(ErrRankOutOfRange, "rank %d not in [1, %d]", rank, t.Size)
	}
	for _, b := range t.Bands {
		if b.Contains(rank) {
			return b, nil
		}
	}
	return Band{}, eris.Wrapf(ErrRankOutOfRange, "rank %d not covered by %s table of size %d", rank, t.Policy, t.Size)
}

// Score 按名次与是否为指定单位取分
func (t *IntervalTable) Score(rank int, special bool) (float64, error) {
	b, err := t.Band(rank)
	if err != nil {
		return 0, err
	}
	if special {
		return b.Special, nil
	}
	return b.Regular, nil
}

// Validate 校验区间表的覆盖不变式
func (t *IntervalTable) Validate() error {
	if len(t.Bands) == 0 {
		return eris.New("interval table has no bands")
	}
	if t.Bands[0].Start != 1 {
		return eris.Errorf("first band starts at %d", t.Bands[0].Start)
	}
	for i, b := range t.Bands {
		if b.End < b.Start {
			return eris.Errorf("band %d is empty: %d-%d", i, b.Start, b.End)
		}
		if i > 0 && t.Bands[i-1].End+1 != b.Start {
			return eris.Errorf("band %d starts at %d, previous ends at %d", i, b.Start, t.Bands[i-1].End)
		}
	}
	if last := t.Bands[len(t.Bands)-1]; last.End != t.Size {
		return eris.Errorf("last band ends at %d, want %d", last.End, t.Size)
	}
	return nil
}
