package models

import (
	"time"

	"github.com/google/uuid"
)

// Dataset types accepted by the platform.
const (
	DataTypeRNASeq     = "RNA_SEQ"
	DataTypeSCRNASeq   = "SCRNA_SEQ"
	DataTypeWGS        = "WGS"
	DataTypeWES        = "WES"
	DataTypeClinical   = "CLINICAL"
	DataTypeProteomics = "PROTEOMICS"
)

// Dataset lifecycle states. Only READY datasets may be analyzed.
const (
	DatasetUploading  = "UPLOADING"
	DatasetProcessing = "PROCESSING"
	DatasetReady      = "READY"
	DatasetError      = "ERROR"
)

// Dataset is the registry record the orchestrator consumes. Upload and
// checksum bookkeeping happen elsewhere; by the time a dataset is READY its
// sample and feature counts are authoritative.
type Dataset struct {
	ID           uuid.UUID         `db:"id"            json:"id"`
	ProjectID    uuid.UUID         `db:"project_id"    json:"project_id"`
	Name         string            `db:"name"          json:"name"`
	Type         string            `db:"type"          json:"type"`
	Status       string            `db:"status"        json:"status"`
	SampleCount  int               `db:"sample_count"  json:"sample_count"`
	FeatureCount int               `db:"feature_count" json:"feature_count"`
	QCPassed     bool              `db:"qc_passed"     json:"qc_passed"`
	Metadata     map[string]string `db:"metadata"      json:"metadata,omitempty"`
	CreatedAt    time.Time         `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at"    json:"updated_at"`
}
