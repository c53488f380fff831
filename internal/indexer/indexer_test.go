package indexer

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/anonymizer"
	"github.com/raaihank/data-sentinel/internal/dataset"
	"github.com/raaihank/data-sentinel/internal/vector"
)

func testIndexer(chunkRows int) *Indexer {
	return New(nil, nil, nil, &Config{ChunkRows: chunkRows, BatchSize: 32}, zap.NewNop())
}

func testDataset() *dataset.Dataset {
	ds := dataset.New()
	ds.AddColumn("ville", []interface{}{"Paris", "Lyon", "Paris"})
	ds.AddColumn("montant", []interface{}{100.0, 200.0, 300.0})
	return ds
}

func TestBuildChunks(t *testing.T) {
	t.Run("KindsAndCounts", func(t *testing.T) {
		ix := testIndexer(2)

		chunks := ix.buildChunks("sales", testDataset())

		counts := make(map[string]int)
		for _, c := range chunks {
			counts[c.Kind]++
		}
		if counts[vector.KindSchema] != 1 {
			t.Errorf("Schema chunks = %d, want 1", counts[vector.KindSchema])
		}
		if counts[vector.KindColumn] != 2 {
			t.Errorf("Column chunks = %d, want 2", counts[vector.KindColumn])
		}
		// Three rows at two rows per chunk.
		if counts[vector.KindRows] != 2 {
			t.Errorf("Row chunks = %d, want 2", counts[vector.KindRows])
		}
	})

	t.Run("SchemaChunkDescribesShape", func(t *testing.T) {
		ix := testIndexer(100)

		chunks := ix.buildChunks("sales", testDataset())

		schema := chunks[0]
		if schema.Kind != vector.KindSchema {
			t.Fatalf("First chunk kind = %s", schema.Kind)
		}
		for _, want := range []string{"sales", "3 rows", "2 columns", `"ville"`, `"montant"`, "numeric"} {
			if !strings.Contains(schema.Text, want) {
				t.Errorf("Schema text missing %q: %s", want, schema.Text)
			}
		}
	})

	t.Run("ColumnChunkStats", func(t *testing.T) {
		ix := testIndexer(100)

		chunks := ix.buildChunks("sales", testDataset())

		var montant string
		for _, c := range chunks {
			if c.Kind == vector.KindColumn && strings.Contains(c.Text, `"montant"`) {
				montant = c.Text
			}
		}
		if montant == "" {
			t.Fatal("No column chunk for montant")
		}
		for _, want := range []string{"mean 200", "min 100", "max 300"} {
			if !strings.Contains(montant, want) {
				t.Errorf("Column chunk missing %q: %s", want, montant)
			}
		}
	})

	t.Run("HashScopedToDataset", func(t *testing.T) {
		ix := testIndexer(100)

		a := ix.buildChunks("sales", testDataset())
		b := ix.buildChunks("archive", testDataset())

		if a[0].TextHash == b[0].TextHash {
			t.Error("Identical text in different datasets shares a hash")
		}

		again := ix.buildChunks("sales", testDataset())
		if a[0].TextHash != again[0].TextHash {
			t.Error("Chunk hash not deterministic")
		}
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		ix := testIndexer(100)

		chunks := ix.buildChunks("empty", dataset.New())
		if len(chunks) != 1 {
			t.Errorf("Empty dataset produced %d chunks, want schema only", len(chunks))
		}
	})
}

func TestAnonymizeForIndex(t *testing.T) {
	compiled, err := anonymizer.Compile(anonymizer.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to compile config: %v", err)
	}
	newAnon := func() *anonymizer.Anonymizer {
		return anonymizer.New(compiled, nil, zap.NewNop())
	}

	personal := func() *dataset.Dataset {
		ds := dataset.New()
		ds.AddColumn("nom", []interface{}{"Marie Martin", "Jean Dupont", "Mohamed Ben Ali"})
		ds.AddColumn("montant", []interface{}{100.0, 200.0, 300.0})
		return ds
	}

	t.Run("RemovesPersonalColumns", func(t *testing.T) {
		ix := New(nil, nil, newAnon, &Config{ChunkRows: 100, AnonymizeFirst: true}, zap.NewNop())

		ds, report, ok := ix.anonymizeForIndex(personal())
		if !ok || report == nil {
			t.Fatal("Expected an anonymization pass")
		}
		if ds.Column("nom") != nil {
			t.Error("Name column survived into the indexed dataset")
		}
		if ds.Column("montant") == nil {
			t.Error("Numeric column was dropped")
		}
	})

	t.Run("FreshRunPerDataset", func(t *testing.T) {
		calls := 0
		counting := func() *anonymizer.Anonymizer {
			calls++
			return newAnon()
		}
		ix := New(nil, nil, counting, &Config{ChunkRows: 100, AnonymizeFirst: true}, zap.NewNop())

		ix.anonymizeForIndex(personal())
		ix.anonymizeForIndex(personal())
		if calls != 2 {
			t.Errorf("Factory called %d times, want one run per dataset", calls)
		}
	})

	t.Run("DisabledPassesThrough", func(t *testing.T) {
		ix := New(nil, nil, newAnon, &Config{ChunkRows: 100, AnonymizeFirst: false}, zap.NewNop())

		ds := personal()
		out, _, ok := ix.anonymizeForIndex(ds)
		if ok || out != ds {
			t.Error("Expected the dataset back untouched")
		}
	})

	t.Run("NilFactorySkips", func(t *testing.T) {
		ix := New(nil, nil, nil, &Config{ChunkRows: 100, AnonymizeFirst: true}, zap.NewNop())

		if _, _, ok := ix.anonymizeForIndex(personal()); ok {
			t.Error("Expected no pass without a factory")
		}
	})
}
