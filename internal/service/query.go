package service

import (
	"fmt"
	"strings"
	"time"
)

// whereClause accumulates AND-ed conditions with positional arguments.
type whereClause struct {
	conds []string
	args  []interface{}
}

// add appends a condition; expr must contain a single %d for the placeholder index.
func (w *whereClause) add(expr string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(expr, len(w.args)))
}

func (w *whereClause) dateRange(column string, from, to *time.Time) {
	if from != nil {
		w.add(column+" >= $%d", *from)
	}
	if to != nil {
		w.add(column+" <= $%d", *to)
	}
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereClause) Args() []interface{} {
	return w.args
}
