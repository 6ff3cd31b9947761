// Package matcher drives a full pairing run: it prepares the trade set,
// pairs every instrument on a worker pool and reconciles positions.
package matcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"taxlot-matcher-go/internal/config"
	"taxlot-matcher-go/internal/corpactions"
	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/normalize"
	"taxlot-matcher-go/internal/pairing"
	"taxlot-matcher-go/internal/position"
	"taxlot-matcher-go/internal/reconcile"
)

// Engine runs the pairing pipeline.
type Engine struct {
	logger *zap.Logger
	cfg    config.Pairing
	cache  *cache.Cache
}

// NewEngine creates a new engine. A non-positive cache TTL disables result memoization.
func NewEngine(logger *zap.Logger, cfg config.Pairing) *Engine {
	e := &Engine{logger: logger, cfg: cfg}
	if cfg.CacheTTL > 0 {
		e.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return e
}

// Prepared is a trade set ready for pairing and reconciliation.
type Prepared struct {
	Trades       []models.Trade
	Resolver     *normalize.Resolver
	Actions      []models.CorporateAction
	Unclassified []normalize.Diagnostic
	Findings     []position.Finding
}

// Run is the outcome of one pairing run. The result depends on the inputs
// only; the run identity lives in ID.
type Run struct {
	ID     string
	Result *pairing.Result
	Cached bool
}

// Stamped returns a copy of the pairs with the run ID set on every pair
// computed by this run. Retained pairs keep the ID of the run that made them.
func (r *Run) Stamped() []models.Pair {
	pairs := make([]models.Pair, len(r.Result.Pairs))
	copy(pairs, r.Result.Pairs)
	for i := range pairs {
		if pairs[i].RunID == "" {
			pairs[i].RunID = r.ID
		}
	}
	return pairs
}

// Prepare adds corporate action transfers, resolves tickers, applies splits
// and accumulates running positions. The input is not modified.
func (e *Engine) Prepare(trades []models.Trade, actions []models.CorporateAction, mappings []models.SymbolMapping) *Prepared {
	nextSeq := 0
	for _, t := range trades {
		if t.Seq >= nextSeq {
			nextSeq = t.Seq + 1
		}
	}

	all := make([]models.Trade, 0, len(trades))
	all = append(all, trades...)
	all = normalize.MergeTrades(all, corpactions.Transfers(actions, nextSeq))

	resolver := normalize.NewResolver(mappings)
	all = resolver.Apply(all)
	all = corpactions.Adjust(all, actions)
	all = position.Accumulate(all, position.Options{IncludeTransfersInTotal: e.cfg.IncludeTransfersInTotal})

	p := &Prepared{Trades: all, Resolver: resolver, Actions: actions}
	for _, t := range all {
		if t.Action == models.ActionUnknown || t.Type == models.TypeUnknown {
			p.Unclassified = append(p.Unclassified, normalize.Diagnostic{
				Hash: t.Hash, Account: t.Account, Symbol: t.Symbol, Time: t.Time, Code: t.Code,
				Reason: "unclassifiable code",
			})
		}
	}
	p.Findings = append(position.MissingHistory(all), position.UnmatchedTransfers(all)...)

	e.logger.Info("Prepared trades",
		zap.Int("trades", len(all)),
		zap.Int("unclassified", len(p.Unclassified)),
		zap.Int("findings", len(p.Findings)))
	for _, f := range p.Findings {
		e.logger.Warn("Position history finding",
			zap.String("account", f.Account),
			zap.String("instrument", f.DisplayName),
			zap.Time("time", f.Time),
			zap.Float64("position", f.Position),
			zap.String("reason", f.Reason))
	}
	return p
}

// Context builds a pairing context from the engine configuration. Empty
// strategy and zero fromYear fall back to the configured values.
func (e *Engine) Context(strategy string, fromYear int, retained []models.Pair) pairing.Context {
	if strategy == "" {
		strategy = e.cfg.Strategy
	}
	if fromYear == 0 {
		fromYear = e.cfg.FromYear
	}
	return pairing.Context{
		Strategy:        strategy,
		FromYear:        fromYear,
		Retained:        retained,
		ExemptAfterDays: e.cfg.ExemptAfterDays,
	}
}

// Pair matches the prepared trades, one instrument per task. Identical
// inputs within the cache TTL return the memoized run. Callers must not
// modify the returned result.
func (e *Engine) Pair(ctx context.Context, trades []models.Trade, pctx pairing.Context) (*Run, error) {
	strategy, jobs, stale, err := pairing.Plan(trades, pctx)
	if err != nil {
		return nil, err
	}

	key := fingerprint(trades, pctx)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			run := *cached.(*Run)
			run.Cached = true
			e.logger.Debug("Pairing run served from cache", zap.String("run_id", run.ID))
			return &run, nil
		}
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	start := time.Now()
	p := pool.NewWithResults[pairing.GroupResult]().
		WithContext(ctx).
		WithMaxGoroutines(workers)
	for _, job := range jobs {
		p.Go(func(ctx context.Context) (pairing.GroupResult, error) {
			if err := ctx.Err(); err != nil {
				return pairing.GroupResult{}, err
			}
			res := job.Run(strategy)
			e.logger.With(zap.String("display_name", job.DisplayName)).Debug("Group paired",
				zap.Int("trades", len(res.Trades)),
				zap.Int("pairs", len(res.Pairs)),
				zap.Int("open_lots", len(res.OpenLots)))
			return res, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, fmt.Errorf("pairing interrupted: %w", err)
	}

	res := pairing.Merge(strategy, pctx, results, stale)
	run := &Run{ID: uuid.NewString(), Result: res}

	e.logger.Info("Pairing finished",
		zap.String("run_id", run.ID),
		zap.String("strategy", res.Strategy),
		zap.Int("from_year", res.FromYear),
		zap.Int("groups", len(jobs)),
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("unpaired", len(res.Unpaired)),
		zap.Int("stale", len(res.Stale)),
		zap.Duration("elapsed", time.Since(start)))
	for _, u := range res.Unpaired {
		e.logger.Warn("Unpaired close",
			zap.String("account", u.Account),
			zap.String("instrument", u.DisplayName),
			zap.Time("time", u.Time),
			zap.Float64("uncovered", u.Uncovered))
	}
	for _, s := range res.Stale {
		e.logger.Warn("Retained pair dropped",
			zap.String("instrument", s.Pair.DisplayName),
			zap.String("open", s.Pair.OpenTradeHash),
			zap.String("close", s.Pair.CloseTradeHash),
			zap.String("reason", s.Reason))
	}

	if e.cache != nil {
		e.cache.Set(key, run, cache.DefaultExpiration)
	}
	return run, nil
}

// Reconcile compares the prepared positions with broker snapshots after
// adjusting the snapshots for the same splits.
func (e *Engine) Reconcile(p *Prepared, snapshots []models.PositionSnapshot) reconcile.Report {
	adjusted := corpactions.AdjustSnapshots(snapshots, p.Actions)
	report := reconcile.Reconcile(p.Trades, adjusted, p.Resolver)
	e.logger.Info("Reconciliation finished",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Int("rename_proposals", len(report.Proposals)))
	return report
}

// fingerprint identifies the inputs of a pairing run.
func fingerprint(trades []models.Trade, pctx pairing.Context) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d\n", pctx.Strategy, pctx.FromYear, pctx.ExemptAfterDays)

	lines := make([]string, 0, len(trades))
	for _, t := range trades {
		lines = append(lines, fmt.Sprintf("t|%s|%s|%s|%g|%g|%s", t.Hash, t.Ticker, t.Action, t.Quantity, t.Price, t.Time.UTC().Format(time.RFC3339Nano)))
	}
	for _, p := range pctx.Retained {
		lines = append(lines, fmt.Sprintf("p|%s|%s|%g|%d", p.OpenTradeHash, p.CloseTradeHash, p.Quantity, p.CloseYear))
	}
	sort.Strings(lines)
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
