// Package scanner implements the market scanner (C7): a staged
// liquidity/volatility/correlation filter pipeline over bounded-
// concurrency batches, a composite z-score ranking, and an LRU-cached
// filter/scorer layer. Concurrency is borrowed from the engine's worker
// pool, bounded-batch pattern retargeted at scanner batches instead of
// generic tasks.
package scanner

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	filterCacheTTL = 60 * time.Second
	scoreCacheTTL  = 300 * time.Second
)

// MemoryProbe reports the current resident-set fraction of the
// configured memory cap, in [0,1]. Swappable for tests.
type MemoryProbe func() float64

// DefaultMemoryProbe reads Go runtime memory stats against a fixed cap;
// real deployments may instead wire cgroup limits.
func DefaultMemoryProbe(capBytes uint64) MemoryProbe {
	return func() float64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		if capBytes == 0 {
			return 0
		}
		return float64(m.Sys) / float64(capBytes)
	}
}

// Scanner runs the staged market scan.
type Scanner struct {
	logger      *zap.Logger
	cfg         types.ScannerConfig
	liquidity   types.LiquidityFilterConfig
	volatility  types.VolatilityFilterConfig
	correlationLimit decimal.Decimal
	levelsCfg   levels.Config
	memProbe    MemoryProbe

	mu          sync.Mutex
	filterCache *lruCache
	scoreCache  *lruCache
}

// New builds a Scanner.
func New(logger *zap.Logger, cfg types.ScannerConfig, liquidity types.LiquidityFilterConfig, volatility types.VolatilityFilterConfig, correlationLimit decimal.Decimal, levelsCfg levels.Config, memProbe MemoryProbe) *Scanner {
	if memProbe == nil {
		memProbe = func() float64 { return 0 }
	}
	return &Scanner{
		logger:           logger.Named("scanner"),
		cfg:              cfg,
		liquidity:        liquidity,
		volatility:       volatility,
		correlationLimit: correlationLimit,
		levelsCfg:        levelsCfg,
		memProbe:         memProbe,
		filterCache:      newLRUCache(2000),
		scoreCache:       newLRUCache(2000),
	}
}

// Scan runs the full pipeline over markets and returns ranked results
// truncated to MaxCandidates (§4.7).
func (s *Scanner) Scan(ctx context.Context, markets []types.MarketData, btc *types.MarketData) []types.ScanResult {
	filtered := applyWhitelistBlacklist(markets, s.cfg.SymbolWhitelist, s.cfg.SymbolBlacklist)
	if s.cfg.TopNByVolume > 0 {
		filtered = topNByVolume(filtered, s.cfg.TopNByVolume)
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	concurrency := s.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	results := make([]types.ScanResult, 0, len(filtered))
	var resultsMu sync.Mutex

	for start := 0; start < len(filtered); start += batchSize {
		if s.memProbe() > 0.7 && batchSize > 1 {
			batchSize = batchSize / 2
			if batchSize < 1 {
				batchSize = 1
			}
		}
		end := start + batchSize
		if end > len(filtered) {
			end = len(filtered)
		}
		batch := filtered[start:end]

		sem := make(chan struct{}, concurrency)
		var wg sync.WaitGroup
		for _, md := range batch {
			select {
			case <-ctx.Done():
				wg.Wait()
				return finalize(results, s.cfg.MaxCandidates)
			default:
			}
			md := md
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				r := s.evaluate(md, btc)
				resultsMu.Lock()
				results = append(results, r)
				resultsMu.Unlock()
			}()
		}
		wg.Wait()
	}

	return finalize(results, s.cfg.MaxCandidates)
}

func finalize(results []types.ScanResult, maxCandidates int) []types.ScanResult {
	sort.Slice(results, func(i, j int) bool { return results[i].Score.GreaterThan(results[j].Score) })
	if maxCandidates > 0 && len(results) > maxCandidates {
		results = results[:maxCandidates]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

func applyWhitelistBlacklist(markets []types.MarketData, whitelist, blacklist []string) []types.MarketData {
	wl := toSet(whitelist)
	bl := toSet(blacklist)
	out := make([]types.MarketData, 0, len(markets))
	for _, m := range markets {
		if len(wl) > 0 {
			if _, ok := wl[m.Symbol]; !ok {
				continue
			}
		}
		if _, ok := bl[m.Symbol]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func topNByVolume(markets []types.MarketData, n int) []types.MarketData {
	sorted := append([]types.MarketData(nil), markets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Volume24hUSD.GreaterThan(sorted[j].Volume24hUSD) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

type filterOutcome struct {
	results   map[string]bool
	details   map[string]types.FilterDetail
	passedAll bool
}

// factKey is a coarse hash of the input fact tuple used to key the filter
// and scorer caches (§4.7 step 7): values rounded to reduce churn from
// noise-level price/volume fluctuations between scans.
func factKey(md types.MarketData) string {
	round := func(d decimal.Decimal) string { return d.Round(4).String() }
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", md.Symbol, round(md.Price), round(md.Volume24hUSD), round(md.ATR15m), round(md.BBWidthPct), round(md.BTCCorrelation))
}

// evaluate runs the three filter groups (always all, per §4.7 step 4),
// the composite score, and the level detector when the row passes.
func (s *Scanner) evaluate(md types.MarketData, btc *types.MarketData) types.ScanResult {
	now := time.Now()
	key := factKey(md)

	var outcome filterOutcome
	if cached, ok := s.filterCache.get(key, now); ok {
		outcome = cached.(filterOutcome)
	} else {
		outcome.results = make(map[string]bool)
		outcome.details = make(map[string]types.FilterDetail)
		liqPass := s.evalLiquidity(md, outcome.results, outcome.details)
		volPass := s.evalVolatility(md, outcome.results, outcome.details)
		corrPass := s.evalCorrelation(md, outcome.results, outcome.details)
		outcome.passedAll = liqPass && volPass && corrPass
		s.filterCache.set(key, outcome, filterCacheTTL, now)
	}

	type scoreOutcome struct {
		score      decimal.Decimal
		components map[string]decimal.Decimal
	}
	var so scoreOutcome
	if cached, ok := s.scoreCache.get(key, now); ok {
		so = cached.(scoreOutcome)
	} else {
		score, components := s.composite(md)
		so = scoreOutcome{score: score, components: components}
		s.scoreCache.set(key, so, scoreCacheTTL, now)
	}

	var lvls []types.TradingLevel
	if outcome.passedAll && len(md.Candles5m) > 2 {
		lvls = levels.Detect(md.Candles5m, md.ATR5m, s.levelsCfg)
	}

	return types.ScanResult{
		Symbol:           md.Symbol,
		Score:            so.score,
		MarketData:       md,
		FilterResults:    outcome.results,
		FilterDetails:    outcome.details,
		ScoreComponents:  so.components,
		Levels:           lvls,
		TsMs:             md.TsMs,
		PassedAllFilters: outcome.passedAll,
	}
}

func (s *Scanner) evalLiquidity(md types.MarketData, results map[string]bool, details map[string]types.FilterDetail) bool {
	pass := true

	ok := md.Volume24hUSD.GreaterThanOrEqual(s.liquidity.Min24hVolumeUSD)
	results["liquidity.volume_24h"] = ok
	details["liquidity.volume_24h"] = types.FilterDetail{Value: md.Volume24hUSD, Threshold: s.liquidity.Min24hVolumeUSD}
	pass = pass && ok

	if md.L2Depth != nil {
		ok = md.L2Depth.SpreadBps.LessThanOrEqual(s.liquidity.MaxSpreadBps)
		results["liquidity.spread_bps"] = ok
		details["liquidity.spread_bps"] = types.FilterDetail{Value: md.L2Depth.SpreadBps, Threshold: s.liquidity.MaxSpreadBps}
		pass = pass && ok

		ok = md.L2Depth.BidUSD05Pct.Add(md.L2Depth.AskUSD05Pct).GreaterThanOrEqual(s.liquidity.MinDepthUSD05Pct)
		results["liquidity.depth_0_5pct"] = ok
		pass = pass && ok

		ok = md.L2Depth.BidUSD03Pct.Add(md.L2Depth.AskUSD03Pct).GreaterThanOrEqual(s.liquidity.MinDepthUSD03Pct)
		results["liquidity.depth_0_3pct"] = ok
		pass = pass && ok
	} else {
		// §8: missing L2 depth skips the spread/depth filters as
		// passed rather than failing the symbol outright.
		results["liquidity.spread_bps"] = true
		details["liquidity.spread_bps"] = types.FilterDetail{Reason: "no L2 depth"}
		results["liquidity.depth_0_5pct"] = true
		details["liquidity.depth_0_5pct"] = types.FilterDetail{Reason: "no L2 depth"}
		results["liquidity.depth_0_3pct"] = true
		details["liquidity.depth_0_3pct"] = types.FilterDetail{Reason: "no L2 depth"}
	}

	ok = md.TradesPerMinute.GreaterThanOrEqual(s.liquidity.MinTradesPerMinute)
	results["liquidity.trades_per_minute"] = ok
	pass = pass && ok

	if md.OIUSD != nil {
		ok = md.OIUSD.GreaterThanOrEqual(s.liquidity.MinOIUSD)
		results["liquidity.oi_usd"] = ok
		pass = pass && ok
	}

	return pass
}

func (s *Scanner) evalVolatility(md types.MarketData, results map[string]bool, details map[string]types.FilterDetail) bool {
	pass := true

	atrRatio := decimal.Zero
	if !md.Price.IsZero() {
		atrRatio = md.ATR15m.Div(md.Price)
	}
	ok := atrRatio.GreaterThanOrEqual(s.volatility.ATRRangeMin) && atrRatio.LessThanOrEqual(s.volatility.ATRRangeMax)
	results["volatility.atr_ratio"] = ok
	details["volatility.atr_ratio"] = types.FilterDetail{Value: atrRatio, Threshold: s.volatility.ATRRangeMax}
	pass = pass && ok

	ok = md.BBWidthPct.LessThanOrEqual(s.volatility.BBWidthPercentileMax)
	results["volatility.bb_width"] = ok
	pass = pass && ok

	surge1h := volSurge1h(md.Candles5m)
	ok = surge1h.GreaterThanOrEqual(s.volatility.VolumeSurge1hMin)
	results["volatility.vol_surge_1h"] = ok
	details["volatility.vol_surge_1h"] = types.FilterDetail{Value: surge1h, Threshold: s.volatility.VolumeSurge1hMin}
	pass = pass && ok

	surge5m := volSurge5m(md.Candles5m)
	ok = surge5m.GreaterThanOrEqual(s.volatility.VolumeSurge5mMin)
	results["volatility.vol_surge_5m"] = ok
	pass = pass && ok

	if md.OIChange24h != nil {
		ok = md.OIChange24h.Abs().GreaterThanOrEqual(s.volatility.OIDeltaThreshold)
		results["volatility.oi_delta"] = ok
		pass = pass && ok
	}

	return pass
}

func (s *Scanner) evalCorrelation(md types.MarketData, results map[string]bool, details map[string]types.FilterDetail) bool {
	ok := md.BTCCorrelation.Abs().LessThanOrEqual(s.correlationLimit)
	results["correlation.btc"] = ok
	details["correlation.btc"] = types.FilterDetail{Value: md.BTCCorrelation.Abs(), Threshold: s.correlationLimit}
	return ok
}

// volSurge1h is the ratio of the mean of the most recent 12 five-minute
// bars' volume to the mean of the preceding 12 (§4.7).
func volSurge1h(candles []types.Candle) decimal.Decimal {
	if len(candles) < 24 {
		return decimal.Zero
	}
	recent := meanVolume(candles[len(candles)-12:])
	prev := meanVolume(candles[len(candles)-24 : len(candles)-12])
	if prev.IsZero() {
		return decimal.Zero
	}
	return recent.Div(prev)
}

// volSurge5m is the ratio of the last bar's volume to the median of the
// preceding 20 (§4.7).
func volSurge5m(candles []types.Candle) decimal.Decimal {
	if len(candles) < 21 {
		return decimal.Zero
	}
	last := candles[len(candles)-1].Volume
	window := candles[len(candles)-21 : len(candles)-1]
	med := medianVolume(window)
	if med.IsZero() {
		return decimal.Zero
	}
	return last.Div(med)
}

func meanVolume(candles []types.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.Volume)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}

func medianVolume(candles []types.Candle) decimal.Decimal {
	vols := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		vols[i] = c.Volume
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].LessThan(vols[j]) })
	n := len(vols)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return vols[n/2]
	}
	return vols[n/2-1].Add(vols[n/2]).Div(decimal.NewFromInt(2))
}

// composite computes the weighted z-score score (§4.7 step 5): each
// component clipped to [-3,3] before weighting.
func (s *Scanner) composite(md types.MarketData) (decimal.Decimal, map[string]decimal.Decimal) {
	w := s.cfg.ScoreWeights

	volSurgeZ := clip3(volSurge1h(md.Candles5m).Add(volSurge5m(md.Candles5m)).Div(decimal.NewFromInt(2)))
	atrQualityZ := clip3(atrQualityScore(md.ATR15m, md.Price))
	correlationZ := clip3(decimal.NewFromInt(1).Sub(md.BTCCorrelation.Abs()))
	tpmZ := clip3(logNormalize(md.TradesPerMinute))

	components := map[string]decimal.Decimal{
		"vol_surge":         volSurgeZ,
		"atr_quality":       atrQualityZ,
		"correlation":       correlationZ,
		"trades_per_minute": tpmZ,
	}

	score := volSurgeZ.Mul(w.VolSurge).
		Add(atrQualityZ.Mul(w.ATRQuality)).
		Add(correlationZ.Mul(w.Correlation)).
		Add(tpmZ.Mul(w.TradesPerMinute))

	return score, components
}

func clip3(d decimal.Decimal) decimal.Decimal {
	lo := decimal.NewFromInt(-3)
	hi := decimal.NewFromInt(3)
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// atrQualityScore is bell-shaped, peaked in the optimal 1.5%-3.5%
// ATR/price band (§4.7 step 5).
func atrQualityScore(atr, price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	ratioPct := atr.Div(price).Mul(decimal.NewFromInt(100))
	center := decimal.NewFromFloat(2.5)
	halfWidth := decimal.NewFromFloat(1.0)
	dist := ratioPct.Sub(center).Abs().Div(halfWidth)
	score := decimal.NewFromInt(3).Sub(dist.Mul(decimal.NewFromInt(3)))
	if score.LessThan(decimal.NewFromInt(-3)) {
		return decimal.NewFromInt(-3)
	}
	return score
}

func logNormalize(tpm decimal.Decimal) decimal.Decimal {
	f, _ := tpm.Float64()
	if f <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Log1p(f))
}
