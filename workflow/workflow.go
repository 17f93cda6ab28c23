// Package workflow implements the report submission state machine:
// capture → enrich → locate → review, plus the terminal submitted state.
// It is independent of any rendering or transport layer; consumers call
// Advance and render the returned state.
package workflow

import (
	"context"
	"errors"
	"time"

	"civiclens/models"
	"civiclens/vision"
)

// State is the workflow's current stage.
type State string

const (
	StateCapture   State = "capture"
	StateEnrich    State = "enrich"
	StateLocate    State = "locate"
	StateReview    State = "review"
	StateSubmitted State = "submitted"
)

var (
	// ErrInvalidInput means the input does not match what the current state
	// needs; the workflow is left unchanged.
	ErrInvalidInput = errors.New("input does not match current workflow state")

	// ErrCompleted means the workflow already submitted its report.
	ErrCompleted = errors.New("workflow already completed")
)

// Classifier produces a verdict for an image. Satisfied by *vision.Provider.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (*vision.Result, error)
}

// Geocoder resolves coordinates to an address, never failing outward.
// Satisfied by *geocode.Resolver.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) string
}

// Submitter persists a completed draft: uploads the image, obtains a durable
// URL and creates the report with status pending.
type Submitter interface {
	Submit(ctx context.Context, draft *Draft) (*models.Report, error)
}

// Draft is the submission under construction. It survives submit failures so
// the user can retry without repeating capture, enrichment or location.
type Draft struct {
	AuthorID string

	ImageName string
	ImageSize int64
	ImageData []byte

	Title        string
	Description  string
	UserNotes    string
	ManualReview bool

	HasLocation bool
	Latitude    float64
	Longitude   float64
	Address     string
}

// Input carries the data for one Advance call. Exactly the field matching the
// current state must be set.
type Input struct {
	Image    *ImageInput
	Location *LocationInput
	Review   *ReviewInput
}

// ImageInput is the capture-stage payload.
type ImageInput struct {
	Name string
	Data []byte
}

// LocationInput is the locate-stage payload.
type LocationInput struct {
	Latitude  float64
	Longitude float64
}

// ReviewInput carries final edits applied before submission. Nil fields leave
// the draft value untouched; coordinates are not editable here.
type ReviewInput struct {
	Title       *string
	Description *string
	UserNotes   *string
}

// Transition is the outcome of one Advance call.
type Transition struct {
	State State

	// Rejected is set when the provider confidently judged the image not to
	// be a civic issue; Reason carries its validation reason and the workflow
	// has regressed to capture.
	Rejected bool
	Reason   string

	// UsedFallback marks enrichment served by the offline classifier;
	// ManualReview additionally marks a generic fallback result.
	UsedFallback bool
	ManualReview bool

	// Report is the persisted record after a successful submit.
	Report *models.Report
}

// Workflow drives one submission. It is not safe for concurrent use; the
// Manager serializes access per session.
type Workflow struct {
	state      State
	draft      Draft
	classifier Classifier
	geocoder   Geocoder
	submitter  Submitter
	now        func() time.Time
}

// New creates a workflow in the capture state.
func New(classifier Classifier, geocoder Geocoder, submitter Submitter, authorID string) *Workflow {
	return &Workflow{
		state:      StateCapture,
		draft:      Draft{AuthorID: authorID},
		classifier: classifier,
		geocoder:   geocoder,
		submitter:  submitter,
		now:        time.Now,
	}
}

// State returns the current stage.
func (w *Workflow) State() State {
	return w.state
}

// Draft returns a copy of the submission under construction, without the
// image bytes.
func (w *Workflow) Draft() Draft {
	d := w.draft
	d.ImageData = nil
	return d
}

// Advance moves the workflow forward with the given input.
func (w *Workflow) Advance(ctx context.Context, in Input) (*Transition, error) {
	switch w.state {
	case StateCapture:
		if in.Image == nil || len(in.Image.Data) == 0 {
			return nil, ErrInvalidInput
		}
		return w.enrich(ctx, in.Image)

	case StateLocate:
		if in.Location == nil {
			return nil, ErrInvalidInput
		}
		w.draft.Latitude = in.Location.Latitude
		w.draft.Longitude = in.Location.Longitude
		w.draft.HasLocation = true
		w.draft.Address = w.geocoder.ReverseGeocode(ctx, in.Location.Latitude, in.Location.Longitude)
		w.state = StateReview
		return &Transition{State: w.state}, nil

	case StateReview:
		return w.submit(ctx, in.Review)

	case StateSubmitted:
		return nil, ErrCompleted

	default:
		return nil, ErrInvalidInput
	}
}

// enrich runs the caption provider on the captured image. Provider failure
// degrades to the offline classifier and never blocks the submission; only a
// confident non-civic verdict regresses to capture.
func (w *Workflow) enrich(ctx context.Context, img *ImageInput) (*Transition, error) {
	w.draft.ImageName = img.Name
	w.draft.ImageSize = int64(len(img.Data))
	w.draft.ImageData = img.Data
	w.state = StateEnrich

	result, err := w.classifier.Classify(ctx, img.Data)
	if err == nil {
		if !result.IsCivicIssue {
			// Discard the image and surface the provider's reason; the user
			// must restart capture.
			w.draft.ImageName = ""
			w.draft.ImageSize = 0
			w.draft.ImageData = nil
			w.state = StateCapture
			return &Transition{
				State:    w.state,
				Rejected: true,
				Reason:   result.ValidationReason,
			}, nil
		}

		w.draft.Title = result.Title
		w.draft.Description = result.ComposedDescription()
		w.draft.ManualReview = false
		w.state = StateLocate
		return &Transition{State: w.state}, nil
	}

	fb := vision.ClassifyFromMetadata(img.Name, w.draft.ImageSize, w.now())
	w.draft.Title = fb.Title
	w.draft.Description = fb.Description
	w.draft.ManualReview = fb.IsGeneric
	w.state = StateLocate
	return &Transition{
		State:        w.state,
		UsedFallback: true,
		ManualReview: fb.IsGeneric,
	}, nil
}

// submit applies final edits and persists the report. A persistence failure
// leaves the workflow in review with the draft intact for retry.
func (w *Workflow) submit(ctx context.Context, edits *ReviewInput) (*Transition, error) {
	if edits != nil {
		if edits.Title != nil {
			w.draft.Title = *edits.Title
		}
		if edits.Description != nil {
			w.draft.Description = *edits.Description
		}
		if edits.UserNotes != nil {
			w.draft.UserNotes = *edits.UserNotes
		}
	}

	if len(w.draft.ImageData) == 0 || w.draft.Description == "" || !w.draft.HasLocation {
		return nil, ErrInvalidInput
	}

	report, err := w.submitter.Submit(ctx, &w.draft)
	if err != nil {
		return nil, err
	}

	w.state = StateSubmitted
	return &Transition{State: w.state, Report: report}, nil
}

// Back steps to the previous stage: review → locate → capture. Stepping back
// from locate discards the enrichment so a fresh image restarts it.
func (w *Workflow) Back() (State, error) {
	switch w.state {
	case StateReview:
		w.draft.Address = ""
		w.draft.HasLocation = false
		w.state = StateLocate
	case StateLocate:
		w.draft = Draft{AuthorID: w.draft.AuthorID}
		w.state = StateCapture
	case StateSubmitted:
		return w.state, ErrCompleted
	default:
		return w.state, ErrInvalidInput
	}
	return w.state, nil
}
