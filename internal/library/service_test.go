package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/cryptox"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/events"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/logging"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/models"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/store"
	"github.com/NotThatKindOfDrLiz/knowtation/internal/syncx"
)

type fakeTransport struct {
	sent   []events.Event
	nextID int
	err    error
}

func (f *fakeTransport) Send(ctx context.Context, ev events.Event) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, ev)
	f.nextID++
	return fmt.Sprintf("net-%d", f.nextID), nil
}

func (f *fakeTransport) Query(ctx context.Context, filter syncx.Filter) ([]events.Event, error) {
	return nil, f.err
}

func setupService(t *testing.T) (*Service, *fakeTransport, store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tr := &fakeTransport{}
	proto := syncx.NewProtocol(tr, events.NewCodec(events.DefaultKinds()), cryptox.DeriveKey("id"), log)
	return NewService(st, proto, log), tr, st
}

func TestImportBibTeX_ReportsPartialSuccess(t *testing.T) {
	svc, _, _ := setupService(t)

	// second entry has an invalid DOI and fails validation
	text := `@article{a,
  title = {Good One},
  author = {Doe, Jane},
  year = {2020}
}
@article{b,
  title = {Bad DOI},
  doi = {not a doi}
}`

	report, err := svc.ImportBibTeX(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	require.True(t, errors.Is(report.Errors[0], common.ErrValidation))

	records, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Good One", records[0].Title)
	require.Equal(t, models.VisibilityPrivate, records[0].Visibility)
}

func TestImportThenExport_PreservesFields(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	text := "@article{doe2020test,\n  title = {A Test},\n  author = {Doe, Jane},\n  year = {2020},\n  journal = {Nature}\n}\n"
	_, err := svc.ImportBibTeX(ctx, text)
	require.NoError(t, err)

	out, err := svc.ExportBibTeX(ctx)
	require.NoError(t, err)
	require.Contains(t, out, "@article{doe2020test,")
	require.Contains(t, out, "title = {A Test}")
	require.Contains(t, out, "author = {Doe, Jane}")
	require.Contains(t, out, "journal = {Nature}")
}

func TestPut_InsertAndReplace(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	r := models.New("Original")
	require.NoError(t, svc.Put(ctx, r))

	r.Title = "Edited"
	require.NoError(t, svc.Put(ctx, r))

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, "Edited", got.Title)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errors.Is(err, common.ErrNotFound))
}

func TestPublishRetract_PersistsNetworkRef(t *testing.T) {
	svc, tr, _ := setupService(t)
	ctx := context.Background()

	r := models.New("Mirror Me")
	r.Visibility = models.VisibilityPublic
	require.NoError(t, svc.Put(ctx, r))

	require.NoError(t, svc.Publish(ctx, r.ID))
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NetworkRef)
	require.Equal(t, "net-1", got.NetworkRef.EventID)

	require.NoError(t, svc.Retract(ctx, r.ID, "done"))
	got, err = svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Nil(t, got.NetworkRef)

	require.Len(t, tr.sent, 2)
	require.Equal(t, 5, tr.sent[1].Kind)
}

func TestRetract_NeverPublished(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	r := models.New("Local Only")
	require.NoError(t, svc.Put(ctx, r))

	err := svc.Retract(ctx, r.ID, "nope")
	require.True(t, errors.Is(err, common.ErrNotPublished))
}

func TestDelete_RetractsMirroredRecord(t *testing.T) {
	svc, tr, _ := setupService(t)
	ctx := context.Background()

	r := models.New("Goes Away")
	r.Visibility = models.VisibilityPublic
	require.NoError(t, svc.Put(ctx, r))
	require.NoError(t, svc.Publish(ctx, r.ID))

	require.NoError(t, svc.Delete(ctx, r.ID))

	_, err := svc.Get(ctx, r.ID)
	require.True(t, errors.Is(err, common.ErrNotFound))

	last := tr.sent[len(tr.sent)-1]
	require.Equal(t, 5, last.Kind)
}

func TestSyncAll_IndependentPerRecord(t *testing.T) {
	svc, tr, _ := setupService(t)
	ctx := context.Background()

	a := models.New("A")
	a.Visibility = models.VisibilityPublic
	b := models.New("B")
	require.NoError(t, svc.Put(ctx, a))
	require.NoError(t, svc.Put(ctx, b))

	require.NoError(t, svc.SyncAll(ctx))
	require.Len(t, tr.sent, 2)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	for _, r := range records {
		require.NotNil(t, r.NetworkRef)
	}

	// a second pass has nothing to do
	require.NoError(t, svc.SyncAll(ctx))
	require.Len(t, tr.sent, 2)
}

func TestSyncAll_CollectsFailuresWithoutBlocking(t *testing.T) {
	svc, tr, _ := setupService(t)
	ctx := context.Background()

	r := models.New("Unlucky")
	require.NoError(t, svc.Put(ctx, r))

	tr.err = fmt.Errorf("%w: relay down", common.ErrTransport)
	err := svc.SyncAll(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrTransport))

	// no partial mutation on failure
	got, gerr := svc.Get(ctx, r.ID)
	require.NoError(t, gerr)
	require.Nil(t, got.NetworkRef)
}
