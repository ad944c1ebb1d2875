package service

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWhereClause(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func(w *whereClause)
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "empty",
			build:   func(w *whereClause) {},
			wantSQL: "",
		},
		{
			name: "type only",
			build: func(w *whereClause) {
				w.add("type = $%d", "Buy")
			},
			wantSQL:  " WHERE type = $1",
			wantArgs: []interface{}{"Buy"},
		},
		{
			name: "type and full range",
			build: func(w *whereClause) {
				w.add("type = $%d", "Sell")
				w.dateRange("date", &from, &to)
			},
			wantSQL:  " WHERE type = $1 AND date >= $2 AND date <= $3",
			wantArgs: []interface{}{"Sell", from, to},
		},
		{
			name: "open ended range",
			build: func(w *whereClause) {
				w.dateRange("sale_date", nil, &to)
			},
			wantSQL:  " WHERE sale_date <= $1",
			wantArgs: []interface{}{to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w whereClause
			tt.build(&w)

			if got := w.String(); got != tt.wantSQL {
				t.Errorf("String() = %q, want %q", got, tt.wantSQL)
			}
			if diff := cmp.Diff(tt.wantArgs, w.Args()); diff != "" {
				t.Errorf("Args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
