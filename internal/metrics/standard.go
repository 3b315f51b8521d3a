package metrics

import "github.com/san-kum/sfclab/internal/dynamo"

// DefaultSettlingBand is the relative band used by Standard.
const DefaultSettlingBand = 0.02

// Standard returns fresh instances of the metrics recorded for every run.
func Standard() []dynamo.Metric {
	return []dynamo.Metric{
		NewControlEffort(),
		NewTrackingError(),
		NewEstimationError(),
		NewSettlingTime(DefaultSettlingBand),
	}
}

// Names lists the metric names Standard produces.
func Names() []string {
	ms := Standard()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name()
	}
	return names
}
