package petrovisor

import (
	"time"

	"petrovisor/pkg/frame"
)

// SignalType is the data shape of a signal.
type SignalType int

const (
	SignalStatic SignalType = iota
	SignalTime
	SignalDepth
	SignalString
	SignalPVT
	SignalStringTime
	SignalStringDepth
)

var signalTypes = newEnum("signal type", []enumValue[SignalType]{
	{SignalStatic, "Static", []string{"static", "staticnumeric"}},
	{SignalTime, "TimeDependent", []string{"time", "timenumeric", "timedependent"}},
	{SignalDepth, "DepthDependent", []string{"depth", "depthnumeric", "depthdependent"}},
	{SignalString, "String", []string{"string", "staticstring"}},
	{SignalPVT, "PVT", []string{"pvt", "pvtnumeric"}},
	{SignalStringTime, "StringTimeDependent", []string{"stringtime", "timestring", "stringtimedependent"}},
	{SignalStringDepth, "StringDepthDependent", []string{"stringdepth", "depthstring", "stringdepthdependent"}},
})

var signalDataRoutes = map[SignalType]string{
	SignalStatic:      "Data/Static",
	SignalTime:        "Data/Time",
	SignalDepth:       "Data/Depth",
	SignalString:      "Data/String",
	SignalStringTime:  "Data/StringTime",
	SignalStringDepth: "Data/StringDepth",
	SignalPVT:         "Data/PVT",
}

// ParseSignalType accepts canonical names and aliases such as "time" or "depth string".
func ParseSignalType(s string) (SignalType, error) { return signalTypes.parse(s) }

// SignalTypes returns every signal type in wire order.
func SignalTypes() []SignalType {
	return []SignalType{SignalStatic, SignalTime, SignalDepth, SignalString, SignalPVT, SignalStringTime, SignalStringDepth}
}

func (t SignalType) String() string                { return signalTypes.name(t) }
func (t SignalType) MarshalJSON() ([]byte, error)  { return signalTypes.marshal(t) }
func (t *SignalType) UnmarshalJSON(b []byte) error { return signalTypes.unmarshal(b, t) }

// DataRoute returns the data route of the signal type, e.g. "Data/Time".
func (t SignalType) DataRoute() string { return signalDataRoutes[t] }

// IsTime reports whether values are indexed by date.
func (t SignalType) IsTime() bool { return t == SignalTime || t == SignalStringTime }

// IsDepth reports whether values are indexed by depth.
func (t SignalType) IsDepth() bool { return t == SignalDepth || t == SignalStringDepth }

// IsStatic reports whether the signal holds one value per entity.
func (t SignalType) IsStatic() bool { return t == SignalStatic || t == SignalString }

// IsString reports whether values are text.
func (t SignalType) IsString() bool {
	return t == SignalString || t == SignalStringTime || t == SignalStringDepth
}

// ValueKind returns the frame kind of the signal's values.
func (t SignalType) ValueKind() frame.Kind {
	if t.IsString() {
		return frame.String
	}
	return frame.Numeric
}

// AggregationType selects how values are combined over a hierarchy or an interval.
type AggregationType int

const (
	AggregationSum AggregationType = iota
	AggregationAverage
	AggregationMax
	AggregationMin
	AggregationFirst
	AggregationLast
	AggregationCount
	AggregationNone
	AggregationMedian
	AggregationMode
	AggregationStandardDeviation
	AggregationVariance
	AggregationPercentile
	AggregationRange
)

var aggregationTypes = newEnum("aggregation type", []enumValue[AggregationType]{
	{AggregationSum, "Sum", []string{"sum", "concatenate", "concat"}},
	{AggregationAverage, "Average", []string{"average", "avg", "mean"}},
	{AggregationMax, "Max", []string{"max", "maximum", "longest", "largest", "biggest"}},
	{AggregationMin, "Min", []string{"min", "minimum", "shortest", "smallest"}},
	{AggregationFirst, "First", nil},
	{AggregationLast, "Last", nil},
	{AggregationCount, "Count", nil},
	{AggregationNone, "NoAggregation", []string{"none", "no", "noaggregation", "noagg"}},
	{AggregationMedian, "Median", nil},
	{AggregationMode, "Mode", nil},
	{AggregationStandardDeviation, "StandardDeviation", []string{"std"}},
	{AggregationVariance, "Variance", []string{"var"}},
	{AggregationPercentile, "Percentile", nil},
	{AggregationRange, "Range", nil},
})

// ParseAggregationType accepts canonical names and aliases such as "avg".
func ParseAggregationType(s string) (AggregationType, error) { return aggregationTypes.parse(s) }

func (a AggregationType) String() string                { return aggregationTypes.name(a) }
func (a AggregationType) MarshalJSON() ([]byte, error)  { return aggregationTypes.marshal(a) }
func (a *AggregationType) UnmarshalJSON(b []byte) error { return aggregationTypes.unmarshal(b, a) }

// TimeIncrement is the step of a time range. Values are ordered from the
// finest to the coarsest step.
type TimeIncrement int

const (
	EverySecond TimeIncrement = iota + 1
	EveryMinute
	EveryFiveMinutes
	EveryFifteenMinutes
	Hourly
	Daily
	Monthly
	Quarterly
	Yearly
)

var timeIncrements = newEnum("time increment", []enumValue[TimeIncrement]{
	{Hourly, "Hourly", []string{"hourly", "h", "hr", "hour", "1h", "1hr", "1hour"}},
	{Daily, "Daily", []string{"daily", "d", "day", "1d", "1day"}},
	{Monthly, "Monthly", []string{"monthly", "m", "month", "1m", "1month"}},
	{Yearly, "Yearly", []string{"yearly", "y", "year", "1y", "1year"}},
	{Quarterly, "Quarterly", []string{"quarterly", "q", "3m", "3month", "quarter"}},
	{EveryMinute, "EveryMinute", []string{"everyminute", "min", "minute", "1min", "1minute"}},
	{EverySecond, "EverySecond", []string{"everysecond", "s", "sec", "second", "1s", "1sec", "1second"}},
	{EveryFiveMinutes, "EveryFiveMinutes", []string{"everyfiveminute", "5min", "5minutes"}},
	{EveryFifteenMinutes, "EveryFifteenMinutes", []string{"everyfifteenminutes", "15min", "15minutes"}},
})

// ParseTimeIncrement accepts canonical names and aliases such as "1d" or "hour".
func ParseTimeIncrement(s string) (TimeIncrement, error) { return timeIncrements.parse(s) }

func (i TimeIncrement) String() string                { return timeIncrements.name(i) }
func (i TimeIncrement) MarshalJSON() ([]byte, error)  { return timeIncrements.marshal(i) }
func (i *TimeIncrement) UnmarshalJSON(b []byte) error { return timeIncrements.unmarshal(b, i) }

// MinTimeIncrement returns the finest of the given increments, or 0.
func MinTimeIncrement(incs ...TimeIncrement) TimeIncrement {
	var out TimeIncrement
	for _, i := range incs {
		if i != 0 && (out == 0 || i < out) {
			out = i
		}
	}
	return out
}

// DepthIncrement is the step of a depth range. Values are ordered from the
// finest to the coarsest step.
type DepthIncrement int

const (
	TenthMeter DepthIncrement = iota
	EighthMeter
	HalfFoot
	Foot
	HalfMeter
	Meter
)

var depthIncrements = newEnum("depth increment", []enumValue[DepthIncrement]{
	{Meter, "Meter", []string{"meter", "m", "1meter", "1m"}},
	{HalfMeter, "HalfMeter", []string{"halfmeter", "halfm", ".5meter", ".5m", "0.5meter", "0.5m"}},
	{TenthMeter, "TenthMeter", []string{"tenthmeter", ".1meter", ".1m", "0.1meter", "0.1m"}},
	{EighthMeter, "EighthMeter", []string{"eightmeter", ".125meter", ".125m", "0.125meter", "0.125m"}},
	{Foot, "Foot", []string{"foot", "ft", "1foot", "1ft"}},
	{HalfFoot, "HalfFoot", []string{"halffoot", "halfft", ".5foot", ".5feet", ".5ft", "0.5foot", "0.5feet", "0.5ft"}},
})

var depthIncrementMeters = map[DepthIncrement]float64{
	TenthMeter:  0.1,
	EighthMeter: 0.125,
	HalfFoot:    0.1524,
	Foot:        0.3048,
	HalfMeter:   0.5,
	Meter:       1,
}

// ParseDepthIncrement accepts canonical names and aliases such as "ft" or "0.5m".
func ParseDepthIncrement(s string) (DepthIncrement, error) { return depthIncrements.parse(s) }

func (i DepthIncrement) String() string                { return depthIncrements.name(i) }
func (i DepthIncrement) MarshalJSON() ([]byte, error)  { return depthIncrements.marshal(i) }
func (i *DepthIncrement) UnmarshalJSON(b []byte) error { return depthIncrements.unmarshal(b, i) }

// Meters returns the step length in meters.
func (i DepthIncrement) Meters() float64 { return depthIncrementMeters[i] }

// MinDepthIncrement returns the finest of the given increments.
func MinDepthIncrement(first DepthIncrement, rest ...DepthIncrement) DepthIncrement {
	out := first
	for _, i := range rest {
		if i < out {
			out = i
		}
	}
	return out
}

// MLModelType is the kind of a machine learning model.
type MLModelType int

const (
	MLRegression MLModelType = iota
	MLBinaryClassification
	MLMultipleClassification
	MLClustering
	MLNaiveBayes
	MLNaiveBayesCategorical
)

var mlModelTypes = newEnum("ML model type", []enumValue[MLModelType]{
	{MLRegression, "Regression", []string{"regression", "reg"}},
	{MLBinaryClassification, "BinaryClassification", []string{"binaryclassification", "binaryclass", "binclass", "bin"}},
	{MLMultipleClassification, "MultipleClassification", []string{"multipleclassification", "multiclassification", "multipleclass", "multiclass", "multiple", "multi"}},
	{MLClustering, "Clustering", []string{"clustering", "cluster"}},
	{MLNaiveBayes, "NaiveBayes", []string{"naivebayes", "bayes"}},
	{MLNaiveBayesCategorical, "NaiveBayesCategorical", []string{"naivebayescategorical", "bayescategorical"}},
})

// ParseMLModelType accepts canonical names and aliases such as "multiclass".
func ParseMLModelType(s string) (MLModelType, error) { return mlModelTypes.parse(s) }

func (t MLModelType) String() string                { return mlModelTypes.name(t) }
func (t MLModelType) MarshalJSON() ([]byte, error)  { return mlModelTypes.marshal(t) }
func (t *MLModelType) UnmarshalJSON(b []byte) error { return mlModelTypes.unmarshal(b, t) }

// MLNormalizationType is the feature normalization of a model.
type MLNormalizationType int

const (
	NormalizationAuto MLNormalizationType = iota + 1
	NormalizationMinMax
	NormalizationMeanVariance
	NormalizationLogMeanVariance
	NormalizationBinning
	NormalizationSupervisedBinning
	NormalizationRobustScaling
	NormalizationLpNorm
	NormalizationGlobalContrast
)

var mlNormalizationTypes = newEnum("ML normalization type", []enumValue[MLNormalizationType]{
	{NormalizationAuto, "Auto", []string{"auto", "automatic"}},
	{NormalizationMinMax, "MinMax", nil},
	{NormalizationMeanVariance, "MeanVariance", []string{"meanvar"}},
	{NormalizationLogMeanVariance, "LogMeanVariance", []string{"logmeanvar"}},
	{NormalizationBinning, "Binning", []string{"bin"}},
	{NormalizationSupervisedBinning, "SupervisedBinning", []string{"supervisedbin", "superbin"}},
	{NormalizationRobustScaling, "RobustScaling", []string{"robust"}},
	{NormalizationLpNorm, "LpNorm", []string{"lp"}},
	{NormalizationGlobalContrast, "GlobalContrast", []string{"contrast"}},
})

// ParseMLNormalizationType accepts canonical names and aliases such as "robust".
func ParseMLNormalizationType(s string) (MLNormalizationType, error) {
	return mlNormalizationTypes.parse(s)
}

func (t MLNormalizationType) String() string               { return mlNormalizationTypes.name(t) }
func (t MLNormalizationType) MarshalJSON() ([]byte, error) { return mlNormalizationTypes.marshal(t) }
func (t *MLNormalizationType) UnmarshalJSON(b []byte) error {
	return mlNormalizationTypes.unmarshal(b, t)
}

// RefTableColumnType is the type of a reference table key or value column.
type RefTableColumnType int

const (
	RefTableNumeric RefTableColumnType = iota
	RefTableString
	RefTableDateTime
	RefTableBool
)

var refTableColumnTypes = newEnum("reference table column type", []enumValue[RefTableColumnType]{
	{RefTableNumeric, "Numeric", []string{"number", "float"}},
	{RefTableString, "String", []string{"str", "text"}},
	{RefTableDateTime, "DateTime", []string{"date", "time", "timestamp"}},
	{RefTableBool, "Bool", []string{"boolean"}},
})

// ParseRefTableColumnType accepts "Numeric", "String", "DateTime" or "Bool".
func ParseRefTableColumnType(s string) (RefTableColumnType, error) {
	return refTableColumnTypes.parse(s)
}

func (t RefTableColumnType) String() string                { return refTableColumnTypes.name(t) }
func (t RefTableColumnType) MarshalJSON() ([]byte, error)  { return refTableColumnTypes.marshal(t) }
func (t *RefTableColumnType) UnmarshalJSON(b []byte) error { return refTableColumnTypes.unmarshal(b, t) }

// Kind returns the frame kind of the column.
func (t RefTableColumnType) Kind() frame.Kind {
	switch t {
	case RefTableString:
		return frame.String
	case RefTableDateTime:
		return frame.Time
	case RefTableBool:
		return frame.Bool
	}
	return frame.Numeric
}

// WorkspaceValueType is the type of a workspace value.
type WorkspaceValueType int

const (
	WorkspaceNumeric WorkspaceValueType = iota
	WorkspaceNumericWithUnit
	WorkspaceString
	WorkspaceList
	WorkspaceDictionary
	WorkspaceEnumeration
)

var workspaceValueTypes = newEnum("workspace value type", []enumValue[WorkspaceValueType]{
	{WorkspaceNumeric, "Numeric", nil},
	{WorkspaceNumericWithUnit, "NumericWithUnit", nil},
	{WorkspaceString, "String", []string{"str"}},
	{WorkspaceList, "List", nil},
	{WorkspaceDictionary, "Dictionary", []string{"dict"}},
	{WorkspaceEnumeration, "Enumeration", []string{"enum"}},
})

// ParseWorkspaceValueType accepts canonical names and aliases such as "dict".
func ParseWorkspaceValueType(s string) (WorkspaceValueType, error) {
	return workspaceValueTypes.parse(s)
}

func (t WorkspaceValueType) String() string                { return workspaceValueTypes.name(t) }
func (t WorkspaceValueType) MarshalJSON() ([]byte, error)  { return workspaceValueTypes.marshal(t) }
func (t *WorkspaceValueType) UnmarshalJSON(b []byte) error { return workspaceValueTypes.unmarshal(b, t) }

// RangeKind is the index axis of a signal's data.
type RangeKind int

const (
	RangeNone RangeKind = iota
	RangeTime
	RangeDepth
)

func (k RangeKind) String() string {
	switch k {
	case RangeTime:
		return "Time"
	case RangeDepth:
		return "Depth"
	}
	return "None"
}

// RangeKind returns the axis the signal's values are indexed by.
func (t SignalType) RangeKind() RangeKind {
	switch {
	case t.IsTime():
		return RangeTime
	case t.IsDepth():
		return RangeDepth
	}
	return RangeNone
}

// Duration returns the nominal length of one step. Calendar increments use
// 30, 91 and 365 days.
func (i TimeIncrement) Duration() time.Duration {
	switch i {
	case EverySecond:
		return time.Second
	case EveryMinute:
		return time.Minute
	case EveryFiveMinutes:
		return 5 * time.Minute
	case EveryFifteenMinutes:
		return 15 * time.Minute
	case Hourly:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	case Monthly:
		return 30 * 24 * time.Hour
	case Quarterly:
		return 91 * 24 * time.Hour
	case Yearly:
		return 365 * 24 * time.Hour
	}
	return 0
}
