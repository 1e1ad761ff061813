// Package processor runs one batch of prefix strings through parsing,
// deduplication, overlap resolution and exclusion, and collects the
// counters and messages a report needs.
package processor

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"project/cidrfold/cidr"
	"project/cidrfold/resolver"
)

// Stats are the summary counters of one run.
type Stats struct {
	TotalInput           int
	Skipped              int
	TotalUnique          int
	DuplicatesFound      int
	DuplicateOccurrences int
	OverlapsFound        int
	Dropped              int
	Replaced             int
	Split                int
	Excluded             int
	Warnings             int
	TotalOutput          int
	StartTime            time.Time
	EndTime              time.Time
}

// Duration is the wall time of the run.
func (s Stats) Duration() time.Duration { return s.EndTime.Sub(s.StartTime) }

// Message is one line of the human readable processing log.
type Message struct {
	Time  time.Time
	Level string
	Text  string
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] [%s] %s", m.Time.Format("2006-01-02 15:04:05"), m.Level, m.Text)
}

// Result is everything a run produced.
type Result struct {
	RunID       string
	Networks    []cidr.Network
	Unique      []cidr.Network
	Duplicates  map[cidr.Network]int
	ParseErrors []error
	Log         []resolver.Entry
	Stats       Stats
	Messages    []Message
}

// Strings returns the final networks in canonical form.
func (r *Result) Strings() []string { return cidr.Strings(r.Networks) }

// Duplicate is one repeated network and how often it appeared.
type Duplicate struct {
	Network cidr.Network
	Count   int
}

// TopDuplicates returns up to n duplicates, most frequent first. Ties are
// ordered by network.
func (r *Result) TopDuplicates(n int) []Duplicate {
	out := make([]Duplicate, 0, len(r.Duplicates))
	for net, count := range r.Duplicates {
		out = append(out, Duplicate{Network: net, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Network.Compare(out[j].Network) < 0
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Processor holds the settings for a run. It keeps no state between runs.
type Processor struct {
	logger  *zap.SugaredLogger
	policy  resolver.Policy
	exclude []cidr.Network
	now     func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithPolicy sets the partial overlap policy passed to the resolver.
func WithPolicy(p resolver.Policy) Option {
	return func(pr *Processor) { pr.policy = p }
}

// WithExclude sets networks removed from every result.
func WithExclude(nets []cidr.Network) Option {
	return func(pr *Processor) { pr.exclude = nets }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(pr *Processor) { pr.now = now }
}

// New creates a Processor. A nil logger discards output.
func New(logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		logger: logger.Sugar(),
		policy: resolver.PolicySplit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs raw through the pipeline. Bad entries are skipped and
// reported; nothing in the batch aborts the run.
func (p *Processor) Process(raw []string) *Result {
	res := &Result{RunID: uuid.NewString()}
	res.Stats.StartTime = p.now()
	res.Stats.TotalInput = len(raw)
	p.info(res, "Loaded %d prefixes (run %s)", len(raw), res.RunID)

	nets, errs := cidr.ParseAll(raw)
	res.ParseErrors = errs
	res.Stats.Skipped = len(errs)
	for _, err := range errs {
		p.warn(res, "Skipping entry: %v", err)
	}

	res.Unique, res.Duplicates = cidr.Deduplicate(nets)
	res.Stats.TotalUnique = len(res.Unique)
	res.Stats.DuplicatesFound, res.Stats.DuplicateOccurrences = cidr.DuplicateStats(res.Duplicates)
	if res.Stats.DuplicatesFound > 0 {
		p.info(res, "Found %d duplicated prefixes", res.Stats.DuplicatesFound)
		p.info(res, "Total repeats removed: %d", res.Stats.DuplicateOccurrences)
		p.info(res, "Most frequent duplicates:")
		for _, d := range res.TopDuplicates(5) {
			p.info(res, "  %s - %d times", d.Network, d.Count)
		}
	} else {
		p.info(res, "No duplicates found")
	}
	p.info(res, "Unique prefixes: %d", res.Stats.TotalUnique)

	p.info(res, "Resolving overlaps (policy %s)...", p.policy)
	outcome := resolver.Resolve(res.Unique, resolver.WithPolicy(p.policy))
	p.record(res, outcome.Log)
	res.Stats.OverlapsFound = outcome.Overlaps()
	p.info(res, "Found %d overlaps", res.Stats.OverlapsFound)

	final := outcome.Networks
	if len(p.exclude) > 0 {
		var log []resolver.Entry
		final, log = resolver.Exclude(final, p.exclude)
		p.record(res, log)
		p.info(res, "Excluded %d prefixes, %d blocks affected", len(p.exclude), len(log))
	}

	if err := resolver.Verify(final); err != nil {
		// Only reachable when partial overlaps are kept by policy.
		p.warn(res, "Result is not disjoint: %v", err)
	}

	res.Networks = final
	res.Stats.TotalOutput = len(final)
	res.Stats.Dropped = resolver.Count(res.Log, resolver.ActionDrop)
	res.Stats.Replaced = resolver.Count(res.Log, resolver.ActionReplace)
	res.Stats.Split = resolver.Count(res.Log, resolver.ActionSplit)
	res.Stats.Excluded = resolver.Count(res.Log, resolver.ActionExclude)
	res.Stats.Warnings = len(resolver.Warnings(res.Log))
	res.Stats.EndTime = p.now()

	p.info(res, "Prefixes after processing: %d", res.Stats.TotalOutput)
	return res
}

func (p *Processor) record(res *Result, log []resolver.Entry) {
	for _, e := range log {
		res.Log = append(res.Log, e)
		if e.Warning {
			p.warn(res, "%s", e)
			continue
		}
		p.logger.Debugw("resolution", "action", e.Action, "input", e.Input.String(),
			"against", e.Against.String(), "relation", e.Relation.String())
		res.Messages = append(res.Messages, Message{Time: p.now(), Level: "INFO", Text: e.String()})
	}
}

func (p *Processor) info(res *Result, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	p.logger.Info(text)
	res.Messages = append(res.Messages, Message{Time: p.now(), Level: "INFO", Text: text})
}

func (p *Processor) warn(res *Result, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	p.logger.Warn(text)
	res.Messages = append(res.Messages, Message{Time: p.now(), Level: "WARNING", Text: text})
}
