package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vcmarket/internal/forest"
	"vcmarket/internal/model"
)

// DefaultFolds is the number of cross-validation folds
const DefaultFolds = 5

// ModelOptions configures the funding predictor
type ModelOptions struct {
	Forest forest.Config
	Folds  int
}

// DefaultModelOptions returns 100 trees, seed 42 and 5 folds.
func DefaultModelOptions() ModelOptions {
	return ModelOptions{Forest: forest.DefaultConfig(), Folds: DefaultFolds}
}

// FundingModel predicts last funding amounts from engineered features. It
// is fitted and evaluated on the same dataset.
type FundingModel struct {
	forest *forest.Forest
	scaler *forest.Scaler
	report model.ModelReport
}

// TrainFundingModel fits the predictor on companies and returns it with the
// companies enriched by expected next funding and funding difference. The
// cross-validation runs alongside the main fit.
func TrainFundingModel(ctx context.Context, companies []model.CompanyRecord, opts ModelOptions, logger *zap.Logger) (*FundingModel, []model.EnrichedCompany, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	X, y, err := BuildFeatureMatrix(companies)
	if err != nil {
		return nil, nil, err
	}
	scaler, scaled, err := forest.FitTransform(X)
	if err != nil {
		return nil, nil, fmt.Errorf("scale features: %w", err)
	}
	if opts.Folds == 0 {
		opts.Folds = DefaultFolds
	}

	var fitted *forest.Forest
	var cvScores []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := forest.Fit(gctx, scaled, y, opts.Forest)
		if err != nil {
			return fmt.Errorf("fit model: %w", err)
		}
		fitted = f
		return nil
	})
	g.Go(func() error {
		scores, err := forest.CrossValidate(gctx, scaled, y, opts.Forest, opts.Folds)
		if err != nil {
			return fmt.Errorf("cross validate: %w", err)
		}
		cvScores = scores
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if cvScores == nil {
		cvScores = []float64{}
		logger.Warn("too few companies for cross validation",
			zap.Int("companies", len(companies)),
			zap.Int("folds", opts.Folds))
	}

	importances := fitted.FeatureImportances()
	weights := make([]model.FeatureWeight, len(FeatureNames))
	for i, name := range FeatureNames {
		weights[i] = model.FeatureWeight{Feature: name, Weight: importances[i]}
	}

	m := &FundingModel{
		forest: fitted,
		scaler: scaler,
		report: model.ModelReport{
			Trees:             fitted.Size(),
			Seed:              opts.Forest.Seed,
			CrossValScores:    cvScores,
			MeanCVScore:       forest.Mean(cvScores),
			FeatureImportance: weights,
		},
	}

	predictions := fitted.PredictAll(scaled)
	enriched := make([]model.EnrichedCompany, len(companies))
	for i, c := range companies {
		enriched[i] = model.EnrichedCompany{
			CompanyRecord:       c,
			ExpectedNextFunding: predictions[i],
			FundingDifference:   predictions[i] - c.LastFundingUSD,
		}
	}

	logger.Info("funding model trained",
		zap.Int("companies", len(companies)),
		zap.Int("trees", m.report.Trees),
		zap.Float64("mean_cv_score", m.report.MeanCVScore))
	return m, enriched, nil
}

// Predict estimates the next funding of c.
func (m *FundingModel) Predict(c model.CompanyRecord) (float64, error) {
	row, err := BuildFeatureRow(c)
	if err != nil {
		return 0, err
	}
	return m.forest.Predict(m.scaler.Transform([][]float64{row.Values})[0]), nil
}

// Report returns the model diagnostics.
func (m *FundingModel) Report() model.ModelReport {
	r := m.report
	r.CrossValScores = make([]float64, len(m.report.CrossValScores))
	copy(r.CrossValScores, m.report.CrossValScores)
	r.FeatureImportance = make([]model.FeatureWeight, len(m.report.FeatureImportance))
	copy(r.FeatureImportance, m.report.FeatureImportance)
	return r
}
