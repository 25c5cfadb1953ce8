package filter

import (
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/dshills/funnel/internal/model"
	"github.com/dshills/funnel/internal/syntax"
)

const (
	// DefaultThreshold is the complexity at or above which a chunk is kept.
	DefaultThreshold = 5

	// LengthLimit is the size in characters above which a function-free
	// chunk is kept.
	LengthLimit = 500
)

// sensitivePatterns flag code that is kept regardless of complexity:
// dangerous calls, SQL, credentials, raw network or file I/O, and
// suppressed lint or open work markers.
var sensitivePatterns = compileAll(
	`eval\(`,
	`exec\(`,
	`os\.system\(`,
	`subprocess\.call`,
	`pickle\.load`,
	`yaml\.load`,
	`input\(`,
	`SELECT.*FROM`,
	`INSERT.*INTO`,
	`UPDATE.*SET`,
	`DELETE.*FROM`,
	`cursor\.execute`,
	`raw_sql`,
	`api_key`,
	`secret`,
	`password`,
	`token`,
	`auth`,
	`credential`,
	`private_key`,
	`requests\.get`,
	`requests\.post`,
	`urllib`,
	`socket`,
	`open\(`,
	`write\(`,
	`read\(`,
	`noqa`,
	`TODO`,
	`FIXME`,
)

// SensitiveMatch returns the first sensitive pattern found in text.
func SensitiveMatch(text string) (*regexp.Regexp, bool) {
	for _, p := range sensitivePatterns {
		if p.MatchString(text) {
			return p, true
		}
	}
	return nil, false
}

// Stats summarizes one L1 pass.
type Stats struct {
	Total    int                      `json:"total"`
	Kept     int                      `json:"kept"`
	Dropped  int                      `json:"dropped"`
	Ratio    float64                  `json:"ratio"`
	ByReason map[model.KeepReason]int `json:"byReason"`
}

// Result is the output of Critical.Filter.
type Result struct {
	Kept  []model.Chunk
	Stats Stats
}

// Critical is the L1 filter.
type Critical struct {
	analyzer  syntax.Analyzer
	threshold int
	logger    *slog.Logger
}

// NewCritical creates an L1 filter. A threshold below 1 uses DefaultThreshold.
func NewCritical(analyzer syntax.Analyzer, threshold int, logger *slog.Logger) *Critical {
	if analyzer == nil {
		analyzer = syntax.NewAnalyzer()
	}
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Critical{analyzer: analyzer, threshold: threshold, logger: logger}
}

// Threshold returns the effective complexity threshold.
func (f *Critical) Threshold() int {
	return f.threshold
}

// Evaluate decides whether one chunk is critical and returns it annotated
// with the keep reason and, when measured, its maximum complexity.
func (f *Critical) Evaluate(c model.Chunk) (model.Chunk, bool) {
	if p, ok := SensitiveMatch(c.Content); ok {
		f.logger.Debug("chunk kept by security heuristic",
			"source", c.Source, "line", c.Lines.Start, "pattern", p.String())
		return c.Annotated(model.ReasonSecurity, 0), true
	}

	fns, err := f.analyzer.Analyze(c.Source, c.Content)
	if err != nil {
		f.logger.Debug("complexity analysis failed, keeping chunk",
			"source", c.Source, "line", c.Lines.Start, "error", err)
		return c.Annotated(model.ReasonAnalysisError, 0), true
	}

	if len(fns) == 0 {
		if utf8.RuneCountInString(c.Content) > LengthLimit {
			return c.Annotated(model.ReasonLength, 0), true
		}
		return c, false
	}

	ccn := syntax.MaxCCN(fns)
	if ccn >= f.threshold {
		return c.Annotated(model.ReasonHighComplexity, ccn), true
	}
	return c, false
}

// Filter runs Evaluate over the core chunks, in order. Chunks of other
// categories are ignored and not counted.
func (f *Critical) Filter(chunks []model.Chunk) Result {
	res := Result{Stats: Stats{ByReason: make(map[model.KeepReason]int)}}
	for _, c := range chunks {
		if c.Category != model.CategoryCore {
			continue
		}
		res.Stats.Total++
		kept, ok := f.Evaluate(c)
		if !ok {
			res.Stats.Dropped++
			continue
		}
		res.Kept = append(res.Kept, kept)
		res.Stats.Kept++
		res.Stats.ByReason[kept.KeepReason]++
	}
	if res.Stats.Total > 0 {
		res.Stats.Ratio = float64(res.Stats.Kept) / float64(res.Stats.Total)
	}

	f.logger.Info("critical filter complete",
		"threshold", f.threshold,
		"total", res.Stats.Total,
		"kept", res.Stats.Kept,
		"dropped", res.Stats.Dropped,
		"keep_ratio", res.Stats.Ratio,
	)
	return res
}
