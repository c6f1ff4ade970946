package petrovisor

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// MLScope groups machine learning model operations.
type MLScope struct {
	c *Client
}

// ML returns the machine learning operations.
func (c *Client) ML() *MLScope { return &MLScope{c: c} }

func (s *MLScope) items() *ItemTypeScope { return s.c.Items(ItemMLModel) }

// Models returns every model.
func (s *MLScope) Models(ctx context.Context) ([]Item, error) { return s.items().All(ctx) }

// ModelNames returns the names of all models.
func (s *MLScope) ModelNames(ctx context.Context) ([]string, error) { return s.items().Names(ctx) }

// Model returns the named model.
func (s *MLScope) Model(ctx context.Context, name string) (Item, error) {
	m, err := s.items().Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("ml model %q: %w", name, ErrNotFound)
	}
	return m, nil
}

// Attribute returns one field of the named model.
func (s *MLScope) Attribute(ctx context.Context, name, attribute string) (any, error) {
	m, err := s.Model(ctx, name)
	if err != nil {
		return nil, err
	}
	v, ok := m.Field(attribute)
	if !ok {
		return nil, fmt.Errorf("ml model %q: unknown attribute %q: %w", name, attribute, ErrNotFound)
	}
	return v, nil
}

func (s *MLScope) stringAttribute(ctx context.Context, name, attribute string) (string, error) {
	v, err := s.Attribute(ctx, name, attribute)
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}

// Type returns the type of the named model.
func (s *MLScope) Type(ctx context.Context, name string) (MLModelType, error) {
	v, err := s.stringAttribute(ctx, name, "Type")
	if err != nil {
		return 0, err
	}
	return ParseMLModelType(v)
}

// Feature is one input or output column of a model.
type Feature struct {
	Name string
	ColumnSignal
}

// columns returns the columns of the first non-empty table of the model's
// feature script, in script order.
func (s *MLScope) columns(ctx context.Context, name string) ([]Feature, string, error) {
	script, err := s.stringAttribute(ctx, name, "TableFormula")
	if err != nil {
		return nil, "", err
	}
	label, err := s.stringAttribute(ctx, name, "LabelColumnName")
	if err != nil {
		return nil, "", err
	}
	parsed, err := s.c.PSharp().Parse(ctx, script, nil)
	if err != nil {
		return nil, "", err
	}
	signals := parsed.ColumnSignals()
	for _, t := range parsed.Tables {
		if len(t.Columns) == 0 {
			continue
		}
		out := make([]Feature, len(t.Columns))
		for i, c := range t.Columns {
			out[i] = Feature{Name: c.Name, ColumnSignal: signals[t.Name][c.Name]}
		}
		return out, label, nil
	}
	return nil, label, nil
}

// Features returns the input columns of the named model.
func (s *MLScope) Features(ctx context.Context, name string) ([]Feature, error) {
	cols, label, err := s.columns(ctx, name)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(cols, func(f Feature) bool { return f.Name == label }), nil
}

// FeatureNames returns the input column names of the named model.
func (s *MLScope) FeatureNames(ctx context.Context, name string) ([]string, error) {
	features, err := s.Features(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	return names, nil
}

// Label returns the output column of the named model. The column is nil
// when the feature script does not compute the label.
func (s *MLScope) Label(ctx context.Context, name string) (string, *Feature, error) {
	cols, label, err := s.columns(ctx, name)
	if err != nil {
		return "", nil, err
	}
	for _, c := range cols {
		if c.Name == label {
			return label, &c, nil
		}
	}
	return label, nil, nil
}

// TrainersAndMetrics lists what a model type can be trained with.
type TrainersAndMetrics struct {
	Trainers []string `json:"Trainers"`
	Metrics  []string `json:"Metrics"`
}

// TrainersAndMetrics returns the trainers and metrics of a model type.
func (s *MLScope) TrainersAndMetrics(ctx context.Context, typ MLModelType) (*TrainersAndMetrics, error) {
	var tm *TrainersAndMetrics
	q := url.Values{"ModelType": {typ.String()}}
	if err := s.c.get(ctx, "ml.trainers", "MLModels/TrainersAndMetrics", q, &tm); err != nil {
		return nil, err
	}
	if tm == nil {
		return nil, fmt.Errorf("ml.trainers: no trainers for model type %s: %w", typ, ErrNotFound)
	}
	return tm, nil
}

// Trainers returns the trainers of a model type.
func (s *MLScope) Trainers(ctx context.Context, typ MLModelType) ([]string, error) {
	tm, err := s.TrainersAndMetrics(ctx, typ)
	if err != nil {
		return nil, err
	}
	return tm.Trainers, nil
}

// Metrics returns the metrics of a model type.
func (s *MLScope) Metrics(ctx context.Context, typ MLModelType) ([]string, error) {
	tm, err := s.TrainersAndMetrics(ctx, typ)
	if err != nil {
		return nil, err
	}
	return tm.Metrics, nil
}

// PreTrainingStatistics returns statistics of the training data.
func (s *MLScope) PreTrainingStatistics(ctx context.Context, model string, skipPreProcessing bool) (any, error) {
	body := map[string]any{"ModelName": model, "SkipPreProcessing": skipPreProcessing}
	var out any
	if err := s.c.post(ctx, "ml.pre_training", "MLModels/PreTrainingStatistics", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostTrainingStatistics returns statistics of the trained model, for one
// entity when given.
func (s *MLScope) PostTrainingStatistics(ctx context.Context, model, entity string) (any, error) {
	body := map[string]any{"ModelName": model}
	if entity != "" {
		body["EntityName"] = entity
	}
	var out any
	if err := s.c.post(ctx, "ml.post_training", "MLModels/PostTrainingStatistics", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Predict evaluates the model on source data for an entity.
func (s *MLScope) Predict(ctx context.Context, model, entity string, data map[string]any) (any, error) {
	body := map[string]any{"ModelName": model, "EntityName": entity, "SourceData": data}
	var out any
	if err := s.c.post(ctx, "ml.predict", "MLModels/Predict", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TrainOptions configure a training run. DefaultTrainOptions holds the
// service defaults.
type TrainOptions struct {
	// TimeToTrain is in seconds.
	TimeToTrain        int
	CompleteCasesOnly  bool
	PerEntity          bool
	Normalization      MLNormalizationType
	OptimizationMetric string
	ValidationFraction float64
	CrossFolds         int
	Clusters           int
	TestFraction       float64
	TestLatinHypercube bool

	// Trainers restricts training to these trainers; empty uses all.
	Trainers  []string
	// EntitySet and Scope name stored items to train on.
	EntitySet string
	Scope     string

	// AsRequest queues the training instead of running it.
	AsRequest bool
	Source    string
	// Activity names the workflow activity selecting the best model.
	Activity  string

	// Options are merged into the training options.
	Options map[string]any
}

// DefaultTrainOptions returns the default training configuration.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		TimeToTrain:        5,
		CompleteCasesOnly:  true,
		Normalization:      NormalizationAuto,
		ValidationFraction: 0.1,
		TestLatinHypercube: true,
		Source:             "manually by user",
	}
}

// Train trains the named model, or queues the training when AsRequest is
// set.
func (s *MLScope) Train(ctx context.Context, model string, o TrainOptions) (any, error) {
	options := map[string]any{
		"EntitySet":                    nil,
		"Scope":                        nil,
		"TestFraction":                 o.TestFraction,
		"TestLatinHypercube":           o.TestLatinHypercube,
		"ValidationFraction":           o.ValidationFraction,
		"OptimizationMetric":           o.OptimizationMetric,
		"TimeToTrain":                  o.TimeToTrain,
		"NumberOfClusters":             o.Clusters,
		"NumberOfCrossValidationFolds": o.CrossFolds,
		"TrainersToExclude":            []string{},
		"NormalizationType":            o.Normalization,
		"CompleteCasesOnly":            o.CompleteCasesOnly,
	}
	if len(o.Trainers) > 0 {
		typ, err := s.Type(ctx, model)
		if err != nil {
			return nil, err
		}
		all, err := s.Trainers(ctx, typ)
		if err != nil {
			return nil, err
		}
		options["TrainersToExclude"] = slices.DeleteFunc(all, func(t string) bool { return slices.Contains(o.Trainers, t) })
	}
	if o.EntitySet != "" {
		set, err := s.c.Items(ItemEntitySet).Get(ctx, o.EntitySet)
		if err != nil {
			return nil, err
		}
		options["EntitySet"] = set
	}
	if o.Scope != "" {
		sc, err := s.c.Items(ItemScope).Get(ctx, o.Scope)
		if err != nil {
			return nil, err
		}
		options["Scope"] = sc
	}
	for k, v := range o.Options {
		options[k] = v
	}
	body := map[string]any{"ModelName": model, "Options": options, "IsModelPerEntity": o.PerEntity}

	var out any
	if o.AsRequest {
		body["WorkspaceName"] = s.c.Workspace()
		body["Source"] = o.Source
		if o.Activity != "" {
			body["Activity"] = o.Activity
		}
		err := s.c.post(ctx, "ml.train", "MLModels/Train/AddRequest", nil, body, &out)
		return out, err
	}
	err := s.c.post(ctx, "ml.train", "MLModels/Train", nil, body, &out)
	return out, err
}

// IsServiceIdle reports whether the training service has no work.
func (s *MLScope) IsServiceIdle(ctx context.Context) (bool, error) {
	var idle bool
	err := s.c.get(ctx, "ml.idle", "ModelTraining/Idle", nil, &idle)
	return idle, err
}

// TrainingStates lists training processes, only unprocessed ones when
// excludeProcessed is set.
func (s *MLScope) TrainingStates(ctx context.Context, excludeProcessed bool) ([]Item, error) {
	p := "ModelTraining"
	if excludeProcessed {
		p = "ModelTraining/NoProcessed"
	}
	var states []Item
	if err := s.c.get(ctx, "ml.training_states", p, nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// TrainingID resolves a model name, or a training id in text form, to the
// id of its latest listed training process.
func (s *MLScope) TrainingID(ctx context.Context, modelOrID string) (uuid.UUID, error) {
	if id, err := uuid.Parse(modelOrID); err == nil {
		return id, nil
	}
	states, err := s.TrainingStates(ctx, false)
	if err != nil {
		return uuid.Nil, err
	}
	var found string
	for _, st := range states {
		name, _ := st.Field("ModelName")
		if n, ok := name.(string); ok && strings.EqualFold(n, modelOrID) {
			id, _ := st.Field("Id")
			found, _ = id.(string)
		}
	}
	if found == "" {
		return uuid.Nil, fmt.Errorf("ml.training_id: %q not in the training list: %w", modelOrID, ErrNotFound)
	}
	return uuid.Parse(found)
}

// TrainingState returns the state of a training process.
func (s *MLScope) TrainingState(ctx context.Context, modelOrID string) (Item, error) {
	id, err := s.TrainingID(ctx, modelOrID)
	if err != nil {
		return nil, err
	}
	var st Item
	err = s.c.get(ctx, "ml.training_state", "ModelTraining/"+id.String(), nil, &st)
	return st, err
}

// TrainingResults returns the results of a training process.
func (s *MLScope) TrainingResults(ctx context.Context, modelOrID string) (any, error) {
	id, err := s.TrainingID(ctx, modelOrID)
	if err != nil {
		return nil, err
	}
	var out any
	err = s.c.get(ctx, "ml.training_results", "ModelTraining/Results/"+id.String(), nil, &out)
	return out, err
}
