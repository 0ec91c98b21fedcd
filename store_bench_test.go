package ontocloud

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-json-experiment/json/jsontext"
)

// Benchmark helpers

// prepareTestDatasets creates datasets shaped like district statistics.
func prepareTestDatasets(count int) []Dataset {
	datasets := make([]Dataset, count)
	for i := range count {
		datasets[i] = Dataset{
			Name: fmt.Sprintf("district-%d", i),
			Data: jsontext.Value(fmt.Sprintf(
				`{"district":"D%d","population":%d,"transport":{"subway_lines":"%d"}}`, i, 1000+i, i%9)),
		}
	}
	return datasets
}

func BenchmarkCreateDataset(b *testing.B) {
	store, err := NewStoreSQLite(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	datasets := prepareTestDatasets(1000)
	b.ResetTimer()
	for i := 0; b.Loop(); i++ {
		if _, err := store.CreateDataset(ctx, datasets[i%len(datasets)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadFrom(b *testing.B) {
	src, err := NewStoreSQLite(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer src.Close()

	ctx := context.Background()
	for _, d := range prepareTestDatasets(2000) {
		if _, err := src.CreateDataset(ctx, d); err != nil {
			b.Fatal(err)
		}
	}
	var buf strings.Builder
	if _, err := src.WriteTo(&buf); err != nil {
		b.Fatal(err)
	}
	exported := buf.String()

	b.ResetTimer()
	for b.Loop() {
		b.StopTimer()
		dst, err := NewStoreSQLite(":memory:")
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		if _, err := dst.ReadFrom(strings.NewReader(exported)); err != nil {
			b.Fatal(err)
		}
		b.StopTimer()
		dst.Close()
		b.StartTimer()
	}
}

func BenchmarkWriteTo(b *testing.B) {
	store, err := NewStoreSQLite(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, d := range prepareTestDatasets(2000) {
		if _, err := store.CreateDataset(ctx, d); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for b.Loop() {
		var buf strings.Builder
		if _, err := store.WriteTo(&buf); err != nil {
			b.Fatal(err)
		}
	}
}
