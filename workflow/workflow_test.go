package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiclens/geocode"
	"civiclens/models"
	"civiclens/vision"
)

type fakeClassifier struct {
	result *vision.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, imageBytes []byte) (*vision.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeGeocoder struct {
	address string
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) string {
	if f.address != "" {
		return f.address
	}
	return geocode.CoordinateFallback(latitude, longitude)
}

type fakeSubmitter struct {
	err       error
	submitted *Draft
	calls     int
}

func (f *fakeSubmitter) Submit(ctx context.Context, draft *Draft) (*models.Report, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *draft
	f.submitted = &copied
	return &models.Report{
		ID:            "report-1",
		AuthorID:      draft.AuthorID,
		ImageURL:      "https://storage.example.com/report-1.jpg",
		Title:         draft.Title,
		AIDescription: draft.Description,
		UserNotes:     draft.UserNotes,
		Latitude:      draft.Latitude,
		Longitude:     draft.Longitude,
		Address:       draft.Address,
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}, nil
}

func civicResult() *vision.Result {
	return &vision.Result{
		Title:            "Large Pothole on Main Road",
		Description:      "A deep pothole spanning half the lane.",
		IsCivicIssue:     true,
		ValidationReason: "Clear road damage visible",
		Severity:         "High",
		Action:           "Dispatch road repair crew",
	}
}

func TestAdvanceHappyPath(t *testing.T) {
	classifier := &fakeClassifier{result: civicResult()}
	submitter := &fakeSubmitter{}
	wf := New(classifier, &fakeGeocoder{address: "MG Road, Bengaluru"}, submitter, "user-1")

	require.Equal(t, StateCapture, wf.State())

	tr, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "pothole.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, StateLocate, tr.State)
	assert.False(t, tr.Rejected)
	assert.False(t, tr.UsedFallback)

	draft := wf.Draft()
	assert.Equal(t, "Large Pothole on Main Road", draft.Title)
	assert.Contains(t, draft.Description, "**Severity:** High")
	assert.Contains(t, draft.Description, "**Recommended Action:** Dispatch road repair crew")

	tr, err = wf.Advance(context.Background(), Input{
		Location: &LocationInput{Latitude: 12.9716, Longitude: 77.5946},
	})
	require.NoError(t, err)
	assert.Equal(t, StateReview, tr.State)
	assert.Equal(t, "MG Road, Bengaluru", wf.Draft().Address)

	notes := "Near the bus stop"
	tr, err = wf.Advance(context.Background(), Input{
		Review: &ReviewInput{UserNotes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, tr.State)
	require.NotNil(t, tr.Report)
	assert.Equal(t, models.StatusPending, tr.Report.Status)
	assert.Equal(t, "user-1", tr.Report.AuthorID)
	assert.Equal(t, "Near the bus stop", submitter.submitted.UserNotes)
}

func TestAdvanceRejectsNonCivicImage(t *testing.T) {
	classifier := &fakeClassifier{result: &vision.Result{
		Title:            "Not a civic issue",
		Description:      "A person taking a selfie.",
		IsCivicIssue:     false,
		ValidationReason: "Photo of a person, no civic infrastructure visible",
		Severity:         "Low",
		Action:           "None",
	}}
	wf := New(classifier, &fakeGeocoder{}, &fakeSubmitter{}, "user-1")

	tr, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "selfie.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.True(t, tr.Rejected)
	assert.Equal(t, "Photo of a person, no civic infrastructure visible", tr.Reason)
	assert.Equal(t, StateCapture, tr.State)

	// The rejected image is discarded.
	draft := wf.Draft()
	assert.Empty(t, draft.ImageName)
	assert.Empty(t, draft.Title)
}

func TestAdvanceFallbackWhenClassifierOffline(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("connection refused")}
	wf := New(classifier, &fakeGeocoder{}, &fakeSubmitter{}, "user-1")

	tr, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "IMG_pothole_42.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, StateLocate, tr.State)
	assert.True(t, tr.UsedFallback)
	assert.False(t, tr.ManualReview)
	assert.Equal(t, "Road Damage - Pothole/Crack Detected", wf.Draft().Title)
}

func TestAdvanceFallbackGenericFlagsManualReview(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("connection refused")}
	wf := New(classifier, &fakeGeocoder{}, &fakeSubmitter{}, "user-1")

	tr, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "20250314_103000.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, StateLocate, tr.State)
	assert.True(t, tr.UsedFallback)
	assert.True(t, tr.ManualReview)
	assert.Equal(t, "Civic Infrastructure Issue Reported", wf.Draft().Title)
}

func TestAdvanceGeocoderFallbackAddress(t *testing.T) {
	wf := New(&fakeClassifier{result: civicResult()}, &fakeGeocoder{}, &fakeSubmitter{}, "")

	_, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "pothole.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)

	_, err = wf.Advance(context.Background(), Input{
		Location: &LocationInput{Latitude: 20.5937, Longitude: 78.9629},
	})
	require.NoError(t, err)
	assert.Equal(t, "Location: 20.593700, 78.962900", wf.Draft().Address)
}

func TestAdvanceSubmitFailureKeepsDraft(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("firestore unavailable")}
	wf := New(&fakeClassifier{result: civicResult()}, &fakeGeocoder{}, submitter, "user-1")

	_, err := wf.Advance(context.Background(), Input{
		Image: &ImageInput{Name: "pothole.jpg", Data: []byte("jpeg-bytes")},
	})
	require.NoError(t, err)
	_, err = wf.Advance(context.Background(), Input{
		Location: &LocationInput{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)

	_, err = wf.Advance(context.Background(), Input{})
	require.Error(t, err)
	assert.Equal(t, StateReview, wf.State())
	assert.Equal(t, "Large Pothole on Main Road", wf.Draft().Title)

	// Retry succeeds once the store recovers.
	submitter.err = nil
	tr, err := wf.Advance(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, tr.State)
}

func TestAdvanceInvalidInputLeavesStateUnchanged(t *testing.T) {
	wf := New(&fakeClassifier{result: civicResult()}, &fakeGeocoder{}, &fakeSubmitter{}, "user-1")

	_, err := wf.Advance(context.Background(), Input{Location: &LocationInput{Latitude: 1, Longitude: 2}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StateCapture, wf.State())

	_, err = wf.Advance(context.Background(), Input{Image: &ImageInput{Name: "empty.jpg"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, StateCapture, wf.State())
}

func TestAdvanceAfterSubmitted(t *testing.T) {
	wf := New(&fakeClassifier{result: civicResult()}, &fakeGeocoder{}, &fakeSubmitter{}, "user-1")

	_, err := wf.Advance(context.Background(), Input{Image: &ImageInput{Name: "p.jpg", Data: []byte("x")}})
	require.NoError(t, err)
	_, err = wf.Advance(context.Background(), Input{Location: &LocationInput{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)
	_, err = wf.Advance(context.Background(), Input{})
	require.NoError(t, err)

	_, err = wf.Advance(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestBackNavigation(t *testing.T) {
	wf := New(&fakeClassifier{result: civicResult()}, &fakeGeocoder{address: "MG Road"}, &fakeSubmitter{}, "user-1")

	_, err := wf.Advance(context.Background(), Input{Image: &ImageInput{Name: "p.jpg", Data: []byte("x")}})
	require.NoError(t, err)
	_, err = wf.Advance(context.Background(), Input{Location: &LocationInput{Latitude: 1, Longitude: 2}})
	require.NoError(t, err)

	// review → locate clears the resolved address
	state, err := wf.Back()
	require.NoError(t, err)
	assert.Equal(t, StateLocate, state)
	assert.Empty(t, wf.Draft().Address)
	assert.False(t, wf.Draft().HasLocation)

	// locate → capture resets the draft but keeps the author
	state, err = wf.Back()
	require.NoError(t, err)
	assert.Equal(t, StateCapture, state)
	assert.Empty(t, wf.Draft().Title)
	assert.Equal(t, "user-1", wf.Draft().AuthorID)

	// capture has no previous stage
	_, err = wf.Back()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestManagerSessionLifecycle(t *testing.T) {
	manager := NewManager(&fakeClassifier{result: civicResult()}, &fakeGeocoder{address: "MG Road"}, &fakeSubmitter{}, time.Hour)

	id := manager.Start("user-1")
	require.NotEmpty(t, id)

	snap, err := manager.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, StateCapture, snap.State)
	assert.False(t, snap.HasImage)

	tr, err := manager.Advance(context.Background(), id, Input{
		Image: &ImageInput{Name: "pothole.jpg", Data: []byte("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, StateLocate, tr.State)

	snap, err = manager.Snapshot(id)
	require.NoError(t, err)
	assert.True(t, snap.HasImage)
	assert.Equal(t, "pothole.jpg", snap.ImageName)

	_, err = manager.Advance(context.Background(), id, Input{
		Location: &LocationInput{Latitude: 1, Longitude: 2},
	})
	require.NoError(t, err)

	tr, err = manager.Advance(context.Background(), id, Input{})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, tr.State)

	// Submission closes the session.
	_, err = manager.Snapshot(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerUnknownSession(t *testing.T) {
	manager := NewManager(&fakeClassifier{}, &fakeGeocoder{}, &fakeSubmitter{}, time.Hour)

	_, err := manager.Advance(context.Background(), "no-such-id", Input{})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = manager.Back("no-such-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
