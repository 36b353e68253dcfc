// Package records serves patient records from a JSON file keyed by patient id.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"maternal-care-agent/internal/domain"
)

const (
	demoName     = "Demo User"
	demoLanguage = "sw"
)

type Directory struct {
	path string

	once    sync.Once
	records map[string]domain.PatientRecord
	missing bool
	err     error
}

func NewDirectory(path string) *Directory {
	return &Directory{path: path}
}

var _ domain.PatientDirectory = (*Directory)(nil)

// Get returns the record for patientID. While the records file does not
// exist every patient gets the demo record.
func (d *Directory) Get(_ context.Context, patientID string) (domain.PatientRecord, error) {
	d.once.Do(d.load)
	if d.err != nil {
		return domain.PatientRecord{}, d.err
	}
	if d.missing {
		return domain.PatientRecord{ID: patientID, Name: demoName, Language: demoLanguage}, nil
	}

	rec, ok := d.records[patientID]
	if !ok {
		return domain.PatientRecord{}, fmt.Errorf("%w: %s", domain.ErrPatientNotFound, patientID)
	}
	if rec.ID == "" {
		rec.ID = patientID
	}
	return rec, nil
}

func (d *Directory) load() {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		d.missing = true
		return
	}
	if err != nil {
		d.err = fmt.Errorf("read patient records: %w", err)
		return
	}
	if err := json.Unmarshal(data, &d.records); err != nil {
		d.err = fmt.Errorf("decode patient records: %w", err)
	}
}
