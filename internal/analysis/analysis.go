// Package analysis ties a recorded session to feature extraction and the classifier.
package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/verte-zerg/keymood/internal/features"
	"github.com/verte-zerg/keymood/internal/model"
	"github.com/verte-zerg/keymood/internal/recorder"
)

// Predictor maps a feature vector to a label and confidence.
type Predictor interface {
	Predict(ctx context.Context, requestID string, fv model.FeatureVector) (model.Prediction, error)
}

// Request is a frozen analyze attempt for one session generation.
type Request struct {
	ID         string
	Generation uint64
	Words      int
	Features   model.FeatureVector
}

// Result merges local features with the classifier outcome.
// Err is set when the classifier failed; Features stay valid.
type Result struct {
	Request    Request
	Prediction model.Prediction
	Err        error
}

// Analyzer runs analyze attempts against a recorder.
type Analyzer struct {
	rec       *recorder.Recorder
	predictor Predictor
}

// New returns an Analyzer. predictor may be nil, in which case Run only
// reports local features.
func New(rec *recorder.Recorder, predictor Predictor) *Analyzer {
	return &Analyzer{rec: rec, predictor: predictor}
}

// Prepare snapshots the session and extracts features. It returns
// features.ErrEmptySession when nothing has been recorded.
func (a *Analyzer) Prepare(text string) (Request, error) {
	snap := a.rec.Snapshot()
	fv, err := features.Extract(snap.Events, text)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:         uuid.NewString(),
		Generation: snap.Generation,
		Words:      features.CountWords(text),
		Features:   fv,
	}, nil
}

// Run asks the predictor for a label. Failures are reported in Result.Err and
// never touch the recorder.
func (a *Analyzer) Run(ctx context.Context, req Request) Result {
	res := Result{Request: req}
	if a.predictor == nil {
		return res
	}
	pred, err := a.predictor.Predict(ctx, req.ID, req.Features)
	if err != nil {
		res.Err = fmt.Errorf("failed to contact classifier: %w", err)
		return res
	}
	res.Prediction = pred
	return res
}

// IsCurrent reports whether res still belongs to the recorder's live session.
func (a *Analyzer) IsCurrent(res Result) bool {
	return res.Request.Generation == a.rec.Generation()
}
