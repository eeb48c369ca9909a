// Package directory holds the static operator registry.
//
// The directory is built once from configuration and is read-only for the
// life of the process. Entries with a malformed relay identity are skipped
// with a logged warning rather than failing the whole load.
package directory

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/haasonsaas/switchboard/internal/config"
	"github.com/haasonsaas/switchboard/pkg/models"
)

// Directory maps relay identities to operators and preserves the configured
// presentation order.
type Directory struct {
	ordered []models.Operator
	byID    map[int64]models.Operator
}

// Load builds a Directory from configured operator entries. Entries whose
// identity does not parse as a numeric relay identity are skipped and
// logged; Load fails only if no usable entry remains.
func Load(entries []config.OperatorEntry, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Directory{
		byID: make(map[int64]models.Operator, len(entries)),
	}

	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			logger.Warn("skipping operator with empty name", "id", entry.ID)
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(entry.ID), 10, 64)
		if err != nil {
			logger.Warn("skipping operator with malformed identity",
				"name", name,
				"id", entry.ID)
			continue
		}

		if _, dup := d.byID[id]; dup {
			logger.Warn("skipping operator with duplicate identity",
				"name", name,
				"id", id)
			continue
		}

		op := models.Operator{Name: name, ID: id}
		d.byID[id] = op
		d.ordered = append(d.ordered, op)
	}

	if len(d.ordered) == 0 {
		return nil, fmt.Errorf("no usable operators configured")
	}

	return d, nil
}

// Lookup returns the operator with the given relay identity.
func (d *Directory) Lookup(id int64) (models.Operator, bool) {
	op, ok := d.byID[id]
	return op, ok
}

// IsOperator reports whether the identity belongs to a configured operator.
func (d *Directory) IsOperator(id int64) bool {
	_, ok := d.byID[id]
	return ok
}

// List returns operators in configured order. The returned slice is a copy.
func (d *Directory) List() []models.Operator {
	out := make([]models.Operator, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// Len returns the number of usable operators.
func (d *Directory) Len() int {
	return len(d.ordered)
}
