// internal/ocr/textract.go
package ocr

import (
	"context"
	stderrors "errors"
	"time"

	"docverify/internal/common/config"
	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/models"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"golang.org/x/sync/errgroup"
)

// TextractService is the subset of the Textract API the analyzer uses.
// Tests substitute a mock for it.
type TextractService interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// fieldQueries are the natural-language queries sent when the queries
// feature is active. The alias is the canonical field name results are
// keyed by.
var fieldQueries = []struct {
	Text  string
	Alias string
}{
	{Text: "What is the control number?", Alias: "controlNumber"},
	{Text: "What is the first name?", Alias: "firstName"},
	{Text: "What is the middle name?", Alias: "middleName"},
	{Text: "What is the last name?", Alias: "lastName"},
	{Text: "What is the date of birth?", Alias: "birthDate"},
	{Text: "What is the test date?", Alias: "testDate"},
	{Text: "What is the test result?", Alias: "testResult"},
	{Text: "What is the PhilHealth number?", Alias: "philHealthNumber"},
	{Text: "What is the name of the testing facility?", Alias: "testingFacility"},
}

// TextractAnalyzer implements Analyzer against AWS Textract.
type TextractAnalyzer struct {
	client  TextractService
	timeout time.Duration
	logger  logger.Logger
}

// NewTextractAnalyzer builds an analyzer with a real Textract client.
func NewTextractAnalyzer(ctx context.Context, cfg config.OCRConfig, region string, log logger.Logger) (*TextractAnalyzer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &TextractAnalyzer{
		client:  textract.NewFromConfig(awsCfg),
		timeout: config.GetDuration(cfg.Timeout),
		logger:  log,
	}, nil
}

// NewTextractAnalyzerWithClient builds an analyzer around an existing
// client, used by tests.
func NewTextractAnalyzerWithClient(client TextractService, timeout time.Duration, log logger.Logger) *TextractAnalyzer {
	return &TextractAnalyzer{client: client, timeout: timeout, logger: log}
}

// Analyze sends both sides to Textract concurrently and merges the
// parsed results. The overall confidence is the mean of the per-side
// averages.
func (a *TextractAnalyzer) Analyze(ctx context.Context, images models.SubmissionImages, mode string) (*Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.logger.Info("Starting document analysis", map[string]interface{}{
		"mode":      mode,
		"frontSize": len(images.Front),
		"backSize":  len(images.Back),
	})

	var frontOut, backOut *textract.AnalyzeDocumentOutput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := a.analyzeSide(gctx, images.Front, mode)
		if err != nil {
			return err
		}
		frontOut = out
		return nil
	})
	g.Go(func() error {
		out, err := a.analyzeSide(gctx, images.Back, mode)
		if err != nil {
			return err
		}
		backOut = out
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("Document analysis failed", map[string]interface{}{"mode": mode, "error": err.Error()})
		return nil, mapTextractError(err)
	}

	result := mergeResults(frontOut, backOut, mode)

	metrics.OCRAnalysisDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	a.logger.Info("Document analysis complete", map[string]interface{}{
		"mode":          mode,
		"fields":        len(result.Fields),
		"avgConfidence": result.AvgConfidence,
	})
	return result, nil
}

func (a *TextractAnalyzer) analyzeSide(ctx context.Context, image []byte, mode string) (*textract.AnalyzeDocumentOutput, error) {
	input := &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: image},
		FeatureTypes: featureTypes(mode),
	}
	if mode == models.ExtractionModeQueries || mode == models.ExtractionModeHybrid {
		queries := make([]types.Query, 0, len(fieldQueries))
		for _, q := range fieldQueries {
			queries = append(queries, types.Query{Text: strPtr(q.Text), Alias: strPtr(q.Alias)})
		}
		input.QueriesConfig = &types.QueriesConfig{Queries: queries}
	}
	return a.client.AnalyzeDocument(ctx, input)
}

func featureTypes(mode string) []types.FeatureType {
	switch mode {
	case models.ExtractionModeQueries:
		return []types.FeatureType{types.FeatureTypeQueries}
	case models.ExtractionModeCoordinate:
		return []types.FeatureType{types.FeatureTypeForms}
	default:
		return []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeQueries}
	}
}

// mapTextractError translates SDK failures into the local taxonomy.
// Parameter rejections are the caller's fault; everything else is a
// retryable collaborator failure.
func mapTextractError(err error) error {
	var invalidParam *types.InvalidParameterException
	var badDoc *types.BadDocumentException
	var unsupported *types.UnsupportedDocumentException
	if stderrors.As(err, &invalidParam) || stderrors.As(err, &badDoc) || stderrors.As(err, &unsupported) {
		return errors.NewOCRInvalidParameterError(err)
	}
	return errors.NewOCRAnalysisFailedError(err)
}

// mergeResults combines the per-side Textract outputs into one Result.
// Query answers win over form key-value pairs; within a source, the
// higher-confidence value for a field wins.
func mergeResults(front, back *textract.AnalyzeDocumentOutput, mode string) *Result {
	fields := map[string]models.ExtractedField{}

	for _, out := range []*textract.AnalyzeDocumentOutput{front, back} {
		for key, f := range parseKeyValuePairs(out.Blocks) {
			if existing, ok := fields[key]; !ok || f.Confidence > existing.Confidence {
				fields[key] = f
			}
		}
	}
	for _, out := range []*textract.AnalyzeDocumentOutput{front, back} {
		for key, f := range parseQueryResults(out.Blocks) {
			if existing, ok := fields[key]; !ok || f.Confidence > existing.Confidence {
				fields[key] = f
			}
		}
	}

	frontConf := averageConfidence(front.Blocks)
	backConf := averageConfidence(back.Blocks)

	return &Result{
		Fields:          fields,
		Mode:            mode,
		FrontConfidence: frontConf,
		BackConfidence:  backConf,
		AvgConfidence:   (frontConf + backConf) / 2,
		FrontText:       extractLines(front.Blocks),
		BackText:        extractLines(back.Blocks),
	}
}

func strPtr(s string) *string { return &s }
