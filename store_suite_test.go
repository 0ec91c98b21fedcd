package ontocloud

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/creachadair/stringset"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/jonboulle/clockwork"
)

// Test helper functions

// testEpoch is the start time of the fake clocks handed to test stores.
var testEpoch = time.UnixMilli(1700000000000).UTC()

// newStoreFunc creates an empty store reading the given clock.
type newStoreFunc func(clock clockwork.Clock) (*Store, error)

// openTestStore creates a store on a fresh fake clock and closes it when the
// test ends.
func openTestStore(t *testing.T, newStore newStoreFunc) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	store, err := newStore(clock)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, clock
}

// runDatasetCRUDTest tests create, get, list and delete of datasets.
func runDatasetCRUDTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store, clock := openTestStore(t, newStore)

	// Member order and duplicate names must survive storage untouched.
	data := jsontext.Value(`{"zeta": 1, "district": "Gangnam-gu", "alpha": {"b": 2, "a": 1}, "zeta": 3}`)
	first, err := store.CreateDataset(ctx, Dataset{
		Name:        "gangnam",
		Description: "district statistics",
		Data:        data,
		UploadedBy:  "alice",
	})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("CreateDataset returned an empty id")
	}
	if !first.CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, testEpoch)
	}
	if first.FileSize != int64(len(data)) {
		t.Errorf("FileSize = %d, want %d", first.FileSize, len(data))
	}

	got, err := store.GetDataset(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetDataset failed: %v", err)
	}
	if string(got.Data) != string(data) {
		t.Errorf("Data = %s, want %s", got.Data, data)
	}
	if got.Name != "gangnam" || got.Description != "district statistics" || got.UploadedBy != "alice" {
		t.Errorf("GetDataset = %+v", got)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("stored CreatedAt = %v, want %v", got.CreatedAt, first.CreatedAt)
	}

	clock.Advance(time.Second)
	second, err := store.CreateDataset(ctx, Dataset{Name: "empty", FileSize: 42})
	if err != nil {
		t.Fatalf("CreateDataset without data failed: %v", err)
	}
	if second.Data != nil || second.FileSize != 42 {
		t.Errorf("second = %+v, want no data and file size 42", second)
	}

	clock.Advance(time.Second)
	third, err := store.CreateDataset(ctx, Dataset{Name: "null", Data: jsontext.Value("null")})
	if err != nil {
		t.Fatalf("CreateDataset with null data failed: %v", err)
	}
	if got, _ := store.GetDataset(ctx, third.ID); got.Data != nil {
		t.Errorf("null data stored as %s", got.Data)
	}

	list, err := store.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	var names []string
	ids := stringset.New()
	for _, d := range list {
		names = append(names, d.Name)
		ids.Add(d.ID)
	}
	if got := strings.Join(names, ","); got != "null,empty,gangnam" {
		t.Errorf("ListDatasets order = %s, want newest first", got)
	}
	if !ids.Equals(stringset.New(first.ID, second.ID, third.ID)) {
		t.Errorf("ListDatasets ids = %v", ids)
	}

	if err := store.DeleteDataset(ctx, second.ID); err != nil {
		t.Fatalf("DeleteDataset failed: %v", err)
	}
	if _, err := store.GetDataset(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDataset after delete error = %v, want %v", err, ErrNotFound)
	}
	if err := store.DeleteDataset(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteDataset error = %v, want %v", err, ErrNotFound)
	}
}

// runDatasetValidationTest tests that malformed datasets are rejected.
func runDatasetValidationTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store, _ := openTestStore(t, newStore)

	tests := []struct {
		name    string
		dataset Dataset
		wantErr error
	}{
		{"missing name", Dataset{Data: jsontext.Value(`{}`)}, ErrMissingName},
		{"truncated json", Dataset{Name: "x", Data: jsontext.Value(`{"a": `)}, ErrInvalidJSON},
		{"trailing data", Dataset{Name: "x", Data: jsontext.Value(`{} {}`)}, ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.CreateDataset(ctx, tt.dataset); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateDataset error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if list, _ := store.ListDatasets(ctx); len(list) != 0 {
		t.Errorf("rejected datasets were stored: %v", list)
	}
}

// runTTLTest tests saving and listing Turtle documents.
func runTTLTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store, clock := openTestStore(t, newStore)

	ds, err := store.CreateDataset(ctx, Dataset{Name: "source", Data: jsontext.Value(`{"district": "Mapo-gu"}`)})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	const content = "@prefix ex: <http://example.org/ontology#> .\n"
	linked, err := store.SaveTTL(ctx, TTLFile{DatasetID: ds.ID, Content: content, CreatedBy: "bob"})
	if err != nil {
		t.Fatalf("SaveTTL failed: %v", err)
	}

	clock.Advance(time.Minute)
	loose, err := store.SaveTTL(ctx, TTLFile{Content: "# standalone\n"})
	if err != nil {
		t.Fatalf("SaveTTL without dataset failed: %v", err)
	}

	got, err := store.GetTTL(ctx, linked.ID)
	if err != nil {
		t.Fatalf("GetTTL failed: %v", err)
	}
	if got.Content != content || got.DatasetID != ds.ID || got.CreatedBy != "bob" {
		t.Errorf("GetTTL = %+v", got)
	}

	all, err := store.ListTTL(ctx, "")
	if err != nil {
		t.Fatalf("ListTTL failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != loose.ID || all[1].ID != linked.ID {
		t.Errorf("ListTTL = %+v, want newest first", all)
	}

	byDataset, err := store.ListTTL(ctx, ds.ID)
	if err != nil {
		t.Fatalf("ListTTL by dataset failed: %v", err)
	}
	if len(byDataset) != 1 || byDataset[0].ID != linked.ID {
		t.Errorf("ListTTL(%s) = %+v", ds.ID, byDataset)
	}

	if _, err := store.SaveTTL(ctx, TTLFile{}); !errors.Is(err, ErrMissingContent) {
		t.Errorf("SaveTTL without content error = %v, want %v", err, ErrMissingContent)
	}
	if _, err := store.SaveTTL(ctx, TTLFile{DatasetID: "missing", Content: content}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveTTL with unknown dataset error = %v, want %v", err, ErrNotFound)
	}
	if _, err := store.GetTTL(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTTL(missing) error = %v, want %v", err, ErrNotFound)
	}

	// Deleting the dataset keeps its Turtle documents.
	if err := store.DeleteDataset(ctx, ds.ID); err != nil {
		t.Fatalf("DeleteDataset failed: %v", err)
	}
	got, err = store.GetTTL(ctx, linked.ID)
	if err != nil {
		t.Fatalf("GetTTL after dataset delete failed: %v", err)
	}
	if got.DatasetID != "" {
		t.Errorf("DatasetID = %q after dataset delete, want empty", got.DatasetID)
	}
}

// runTTLDeleteRaceTest saves Turtle documents while their datasets are being
// deleted. Either call may fail, but no document may end up pointing at a
// dataset that no longer exists.
func runTTLDeleteRaceTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store, _ := openTestStore(t, newStore)

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ds, err := store.CreateDataset(ctx, Dataset{Name: "race", Data: jsontext.Value(`{"n": 1}`)})
		if err != nil {
			t.Fatalf("CreateDataset failed: %v", err)
		}
		ids[i] = ds.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.SaveTTL(ctx, TTLFile{DatasetID: id, Content: "# linked\n"})
		}()
		go func() {
			defer wg.Done()
			_ = store.DeleteDataset(ctx, id)
		}()
	}
	wg.Wait()

	files, err := store.ListTTL(ctx, "")
	if err != nil {
		t.Fatalf("ListTTL failed: %v", err)
	}
	for _, f := range files {
		if f.DatasetID == "" {
			continue
		}
		if _, err := store.GetDataset(ctx, f.DatasetID); err != nil {
			t.Errorf("Turtle document %s points at dataset %s: %v", f.ID, f.DatasetID, err)
		}
	}
}

// runReadWriteTest exports one store and imports the result into another.
// Export output is compact JSON, so the inputs are written compactly.
func runReadWriteTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store1, clock := openTestStore(t, newStore)

	inputs := []Dataset{
		{Name: "a", Data: jsontext.Value(`{"z":1,"a":[true,null]}`)},
		{Name: "b", Description: "no data"},
		{Name: "c", Data: jsontext.Value(`{"district":"서울","k":"v","k":"w"}`), UploadedBy: "carol"},
	}
	var created []*Dataset
	for _, d := range inputs {
		c, err := store1.CreateDataset(ctx, d)
		if err != nil {
			t.Fatalf("CreateDataset(%s) failed: %v", d.Name, err)
		}
		created = append(created, c)
		clock.Advance(time.Second)
	}

	var buf strings.Builder
	n, err := store1.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	exported := buf.String()

	store2, _ := openTestStore(t, newStore)
	bytesRead, err := store2.ReadFrom(strings.NewReader(exported))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if bytesRead != int64(len(exported)) {
		t.Errorf("ReadFrom reported %d bytes read, but input was %d bytes", bytesRead, len(exported))
	}

	for _, want := range created {
		got, err := store2.GetDataset(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetDataset(%s) after import failed: %v", want.Name, err)
		}
		if string(got.Data) != string(want.Data) || got.Name != want.Name || got.Description != want.Description ||
			got.UploadedBy != want.UploadedBy || got.FileSize != want.FileSize || !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("imported %+v, want %+v", got, want)
		}
	}

	// Importing the same export again skips existing ids.
	if _, err := store2.ReadFrom(strings.NewReader(exported)); err != nil {
		t.Fatalf("second ReadFrom failed: %v", err)
	}
	if list, _ := store2.ListDatasets(ctx); len(list) != len(inputs) {
		t.Errorf("got %d datasets after re-import, want %d", len(list), len(inputs))
	}
}

// runReadFromTest tests imports of hand-written streams.
func runReadFromTest(t *testing.T, newStore newStoreFunc) {
	ctx := context.Background()
	store, _ := openTestStore(t, newStore)

	input := `[{"name": "fresh", "json_data": {"b":1,"a":2}}, {"name": "nulled", "json_data": null}]`
	if _, err := store.ReadFrom(strings.NewReader(input)); err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	list, err := store.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d datasets, want 2", len(list))
	}
	for _, d := range list {
		if d.ID == "" || !d.CreatedAt.Equal(testEpoch) {
			t.Errorf("dataset %s not assigned an id and timestamp: %+v", d.Name, d)
		}
		switch d.Name {
		case "fresh":
			if string(d.Data) != `{"b":1,"a":2}` {
				t.Errorf("fresh data = %s", d.Data)
			}
		case "nulled":
			if d.Data != nil {
				t.Errorf("nulled data = %s, want none", d.Data)
			}
		}
	}

	for _, bad := range []string{`{}`, `[{"description": "nameless"}]`, `[{"name": 1}]`, `[`} {
		if _, err := store.ReadFrom(strings.NewReader(bad)); err == nil {
			t.Errorf("ReadFrom(%s) succeeded, want error", bad)
		}
	}
}

// runSuite runs every store test against the given factory.
func runSuite(t *testing.T, newStore newStoreFunc) {
	t.Run("DatasetCRUD", func(t *testing.T) {
		runDatasetCRUDTest(t, newStore)
	})
	t.Run("DatasetValidation", func(t *testing.T) {
		runDatasetValidationTest(t, newStore)
	})
	t.Run("TTL", func(t *testing.T) {
		runTTLTest(t, newStore)
	})
	t.Run("TTLDeleteRace", func(t *testing.T) {
		runTTLDeleteRaceTest(t, newStore)
	})
	t.Run("ReadWrite", func(t *testing.T) {
		runReadWriteTest(t, newStore)
	})
	t.Run("ReadFrom", func(t *testing.T) {
		runReadFromTest(t, newStore)
	})
}
