// Package pipeline loads company and investor files into an immutable
// Dataset snapshot and derives statistics, the funding model and company
// rankings from it.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vcmarket/internal/model"
)

// Options controls how a dataset is validated and built
type Options struct {
	ReferenceFile   string   // company file whose header is the required layout
	ReferenceLayout []string // used when ReferenceFile is empty; nil means DefaultReferenceLayout
	SkipInvalidRows bool     // drop bad rows instead of failing the load
	CleaningSteps   []string // nil means DefaultCleaningSteps
	Model           ModelOptions
	LoadTimeout     time.Duration // 0 means no timeout
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Model: DefaultModelOptions(), LoadTimeout: 5 * time.Minute}
}

// Dataset is the immutable result of one load. Every derived value is
// computed once by Build and never changes afterwards.
type Dataset struct {
	ID          string
	Source      string
	FundingType string
	LoadedAt    time.Time

	Companies  []model.EnrichedCompany
	Investors  *InvestorBook
	Overall    model.OverallStatistics
	Categories model.CategoryStatistics
	Industries []string
	Model      *FundingModel

	Rejected []RowRejection
	Metrics  model.LoadMetrics
}

// DatasetSummary describes a loaded dataset
type DatasetSummary struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	FundingType  string            `json:"funding_type"`
	LoadedAt     time.Time         `json:"loaded_at"`
	Companies    int               `json:"companies"`
	Investors    int               `json:"investors"`
	Industries   int               `json:"industries"`
	RejectedRows []RowRejection    `json:"rejected_rows"`
	Metrics      model.LoadMetrics `json:"metrics"`
}

// Summary returns the descriptive header of ds.
func (ds *Dataset) Summary() DatasetSummary {
	rejected := ds.Rejected
	if rejected == nil {
		rejected = []RowRejection{}
	}
	return DatasetSummary{
		ID:           ds.ID,
		Source:       ds.Source,
		FundingType:  ds.FundingType,
		LoadedAt:     ds.LoadedAt,
		Companies:    len(ds.Companies),
		Investors:    ds.Investors.Len(),
		Industries:   len(ds.Industries),
		RejectedRows: rejected,
		Metrics:      ds.Metrics,
	}
}

// BuildInput holds the parsed source tables of one load
type BuildInput struct {
	Companies   *RawTable
	EUInvestors *RawTable
	USInvestors *RawTable
	Reference   []string
}

// ------------------- Dataset Construction -------------------

// Build validates and cleans the input tables and derives every statistic
// and the funding model. It either returns a complete Dataset or an error.
func Build(ctx context.Context, in BuildInput, opts Options, tracker *LoadTracker, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewLoadTracker(uuid.New().String(), nil, logger)
	}
	ds, err := build(ctx, in, opts, tracker, logger)
	if err != nil {
		tracker.Fail(err)
		return nil, err
	}
	ds.Metrics = tracker.Complete()
	return ds, nil
}

func build(ctx context.Context, in BuildInput, opts Options, tracker *LoadTracker, logger *zap.Logger) (*Dataset, error) {
	if in.Companies == nil || in.EUInvestors == nil || in.USInvestors == nil {
		return nil, fmt.Errorf("build dataset: missing input table")
	}
	reference := in.Reference
	if reference == nil {
		reference = opts.ReferenceLayout
	}
	if reference == nil {
		reference = DefaultReferenceLayout
	}
	steps := opts.CleaningSteps
	if steps == nil {
		steps = DefaultCleaningSteps
	}
	source := in.Companies.Source

	// --- VALIDATION STAGE ---
	tracker.StartStage("validation")
	if err := ValidateLayout(source, in.Companies.Header, reference); err != nil {
		tracker.EndStage("validation", 0, 1)
		return nil, err
	}
	fundingType, err := ValidateFundingType(in.Companies)
	if err != nil {
		tracker.EndStage("validation", 0, 1)
		return nil, err
	}
	rejected := ValidateRows(in.Companies, &CompanyRules)
	tracker.EndStage("validation", len(in.Companies.Rows), len(rejected))

	// --- TRANSFORMATION STAGE ---
	tracker.StartStage("transformation")
	cleaned, err := CleanRecords(in.Companies, steps)
	if err != nil {
		tracker.EndStage("transformation", 0, 1)
		return nil, err
	}
	bad := make(map[int]bool, len(rejected))
	for _, r := range rejected {
		bad[r.Row] = true
	}
	usable := cleaned[:0:0]
	for _, rec := range cleaned {
		if !bad[rec.Row] {
			usable = append(usable, rec)
		}
	}
	companies, convRejected, _ := BuildCompanies(source, usable, true)
	rejected = append(rejected, convRejected...)
	sort.SliceStable(rejected, func(i, j int) bool { return rejected[i].Row < rejected[j].Row })
	tracker.EndStage("transformation", len(companies), len(convRejected))
	tracker.SetRecordCounts(len(in.Companies.Rows), len(companies))
	tracker.RecordRejections("companies", rejected)

	if len(rejected) > 0 && !opts.SkipInvalidRows {
		return nil, &DataQualityError{Source: source, Rejected: rejected}
	}
	if len(companies) == 0 {
		return nil, &DataQualityError{Source: source, Rejected: rejected}
	}

	// --- INVESTOR STAGE ---
	tracker.StartStage("investors")
	eu, euRejected, err := ParseInvestors(in.EUInvestors, model.RegionEU, opts.SkipInvalidRows)
	if err != nil {
		tracker.EndStage("investors", 0, len(euRejected))
		return nil, err
	}
	us, usRejected, err := ParseInvestors(in.USInvestors, model.RegionUS, opts.SkipInvalidRows)
	if err != nil {
		tracker.EndStage("investors", len(eu), len(usRejected))
		return nil, err
	}
	tracker.RecordRejections("eu_investors", euRejected)
	tracker.RecordRejections("us_investors", usRejected)
	book := NewInvestorBook(eu, us)
	tracker.EndStage("investors", book.Len(), len(euRejected)+len(usRejected))

	// --- AGGREGATION STAGE ---
	tracker.StartStage("aggregation")
	overall := ComputeOverallStatistics(companies)
	categories := ComputeCategoryStatistics(companies)
	industries := IndustryList(companies)
	tracker.EndStage("aggregation", len(categories), 0)

	// --- MODEL STAGE ---
	tracker.StartStage("model")
	fm, enriched, err := TrainFundingModel(ctx, companies, opts.Model, logger)
	if err != nil {
		tracker.EndStage("model", 0, 1)
		return nil, err
	}
	tracker.EndStage("model", len(enriched), 0)

	return &Dataset{
		ID:          tracker.GetMetrics().LoadID,
		Source:      source,
		FundingType: fundingType,
		LoadedAt:    time.Now().UTC(),
		Companies:   enriched,
		Investors:   book,
		Overall:     overall,
		Categories:  categories,
		Industries:  industries,
		Model:       fm,
		Rejected:    rejected,
	}, nil
}

// ------------------- Loader -------------------

// Loader reads the source files of a load and builds the Dataset
type Loader struct {
	ingester *Ingester
	opts     Options
	metrics  *Metrics
	logger   *zap.Logger
}

// NewLoader creates a loader. metrics may be nil.
func NewLoader(ingester *Ingester, opts Options, metrics *Metrics, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ingester == nil {
		ingester = NewIngester(nil, nil, logger)
	}
	return &Loader{ingester: ingester, opts: opts, metrics: metrics, logger: logger}
}

// Load reads the three sources in parallel and builds a Dataset from them.
func (l *Loader) Load(ctx context.Context, sources model.Sources) (*Dataset, error) {
	if sources.Companies == "" || sources.EUInvestors == "" || sources.USInvestors == "" {
		return nil, &ParameterError{Field: "sources", Reason: "companies, eu_investors and us_investors are required"}
	}
	if l.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.LoadTimeout)
		defer cancel()
	}

	loadID := uuid.New().String()
	logger := l.logger.With(zap.String("load_id", loadID))
	tracker := NewLoadTracker(loadID, l.metrics, logger)
	logger.Info("starting dataset load",
		zap.String("companies", sources.Companies),
		zap.String("eu_investors", sources.EUInvestors),
		zap.String("us_investors", sources.USInvestors))

	// --- INGESTION STAGE ---
	tracker.StartStage("ingestion")
	var in BuildInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := l.ingester.ReadTable(gctx, sources.Companies)
		in.Companies = t
		return err
	})
	g.Go(func() error {
		t, err := l.ingester.ReadTable(gctx, sources.EUInvestors)
		in.EUInvestors = t
		return err
	})
	g.Go(func() error {
		t, err := l.ingester.ReadTable(gctx, sources.USInvestors)
		in.USInvestors = t
		return err
	})
	if l.opts.ReferenceFile != "" {
		g.Go(func() error {
			ref, err := LoadReferenceLayout(gctx, l.ingester, l.opts.ReferenceFile)
			in.Reference = ref
			return err
		})
	}
	if err := g.Wait(); err != nil {
		tracker.EndStage("ingestion", 0, 1)
		tracker.Fail(err)
		return nil, err
	}
	tracker.EndStage("ingestion", len(in.Companies.Rows)+len(in.EUInvestors.Rows)+len(in.USInvestors.Rows), 0)

	return Build(ctx, in, l.opts, tracker, logger)
}
