package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	RecordCacheHit()
	RecordBalanceComputation("success", false)
	RecordDatabaseQuery("list_ordered", "success", 0.01)

	path := filepath.Join(t.TempDir(), "nft_ledger.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	for _, name := range []string{
		"nft_ledger_cache_hits_total",
		`nft_ledger_balance_computations_total{cached="false",status="success"}`,
		`nft_ledger_database_queries_total{query_type="list_ordered",status="success"}`,
	} {
		if !strings.Contains(string(data), name) {
			t.Errorf("textfile missing %s", name)
		}
	}
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	if timer.Elapsed() <= 0 {
		t.Errorf("Elapsed() = %v, want > 0", timer.Elapsed())
	}
}
