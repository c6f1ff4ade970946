package petrovisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

const (
	firstRun  = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	secondRun = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

func mlAPI(t *testing.T) *fakeAPI {
	api := newFakeAPI(t)
	api.json("GET MLModels/M", Item{"Name": "M", "Type": "Regression", "TableFormula": "table T ...", "LabelColumnName": "Y"})
	api.handle("POST Parsing/Parsed", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `{"TableCalculations":[
			{"Name":"Empty","Columns":[]},
			{"Name":"T","Columns":[
				{"Name":"X","Unit":{"Name":"bbl/d"},"Formula":"Signal(\"Oil\", \"m3/d\")"},
				{"Name":"Y","Unit":{"Name":"psi"},"Formula":"Signal(\"Pressure\", \"bar\")"}]}]}`)
	})
	api.json("GET MLModels/TrainersAndMetrics", TrainersAndMetrics{Trainers: []string{"Lgbm", "Sdca", "FastTree"}, Metrics: []string{"RSquared"}})
	api.json("GET ModelTraining", []Item{
		{"ModelName": "m", "Id": firstRun},
		{"ModelName": "Other", "Id": uuid.NewString()},
		{"ModelName": "M", "Id": secondRun},
	})
	return api
}

func TestML_FeaturesAndLabel(t *testing.T) {
	c := newTestClient(t, mlAPI(t))
	ctx := context.Background()

	names, err := c.ML().FeatureNames(ctx, "M")
	if err != nil {
		t.Fatalf("FeatureNames: %v", err)
	}
	if diff := cmp.Diff([]string{"X"}, names); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
	label, col, err := c.ML().Label(ctx, "M")
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	want := &Feature{Name: "Y", ColumnSignal: ColumnSignal{Unit: "psi", Signal: "Pressure", SignalUnit: "bar"}}
	if label != "Y" {
		t.Errorf("label = %q", label)
	}
	if diff := cmp.Diff(want, col); diff != "" {
		t.Errorf("label column mismatch (-want +got):\n%s", diff)
	}
	if typ, err := c.ML().Type(ctx, "M"); err != nil || typ != MLRegression {
		t.Errorf("Type = %v, %v", typ, err)
	}
}

func TestML_AttributeUnknown(t *testing.T) {
	c := newTestClient(t, mlAPI(t))
	if _, err := c.ML().Attribute(context.Background(), "M", "Color"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestML_TrainExcludesUnchosenTrainers(t *testing.T) {
	api := mlAPI(t)
	api.json("POST MLModels/Train", "started")
	c := newTestClient(t, api)
	o := DefaultTrainOptions()
	o.Trainers = []string{"Sdca"}
	o.Options = map[string]any{"TimeToTrain": 60}

	out, err := c.ML().Train(context.Background(), "M", o)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if out != "started" {
		t.Errorf("Train = %v", out)
	}
	if q := api.calls("GET MLModels/TrainersAndMetrics")[0].Query; q != "ModelType=Regression" {
		t.Errorf("unexpected trainers query %q", q)
	}
	var body struct {
		ModelName        string
		IsModelPerEntity bool
		Options          map[string]any
	}
	if err := json.Unmarshal([]byte(api.calls("POST MLModels/Train")[0].Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ModelName != "M" || body.IsModelPerEntity {
		t.Errorf("unexpected body %+v", body)
	}
	if diff := cmp.Diff([]any{"Lgbm", "FastTree"}, body.Options["TrainersToExclude"]); diff != "" {
		t.Errorf("excluded trainers mismatch (-want +got):\n%s", diff)
	}
	if body.Options["TimeToTrain"] != 60.0 || body.Options["NormalizationType"] != "Auto" {
		t.Errorf("unexpected options %v", body.Options)
	}
}

func TestML_TrainAsRequest(t *testing.T) {
	api := mlAPI(t)
	api.json("POST MLModels/Train/AddRequest", true)
	c := newTestClient(t, api)
	o := DefaultTrainOptions()
	o.AsRequest = true
	if _, err := c.ML().Train(context.Background(), "M", o); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if n := len(api.calls("POST MLModels/Train")); n != 0 {
		t.Errorf("queued training must not run directly, got %d", n)
	}
	var body map[string]any
	json.Unmarshal([]byte(api.calls("POST MLModels/Train/AddRequest")[0].Body), &body)
	if body["WorkspaceName"] != testWorkspace || body["Source"] != "manually by user" {
		t.Errorf("unexpected request body %v", body)
	}
}

func TestML_TrainingID(t *testing.T) {
	c := newTestClient(t, mlAPI(t))
	ctx := context.Background()

	id, err := c.ML().TrainingID(ctx, "M")
	if err != nil {
		t.Fatalf("TrainingID: %v", err)
	}
	if id.String() != secondRun {
		t.Errorf("expected the latest matching run, got %s", id)
	}
	if id, err := c.ML().TrainingID(ctx, firstRun); err != nil || id.String() != firstRun {
		t.Errorf("id text should resolve to itself, got %s, %v", id, err)
	}
	if _, err := c.ML().TrainingID(ctx, "Unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestML_TrainingState(t *testing.T) {
	api := mlAPI(t)
	api.json("GET ModelTraining/"+secondRun, Item{"State": "Finished"})
	c := newTestClient(t, api)
	st, err := c.ML().TrainingState(context.Background(), "M")
	if err != nil {
		t.Fatalf("TrainingState: %v", err)
	}
	if v, _ := st.Field("State"); v != "Finished" {
		t.Errorf("unexpected state %v", st)
	}
}
