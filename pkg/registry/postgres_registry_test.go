package registry

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactaudit/pactaudit/pkg/evidence"
)

func TestBundleRegistry_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := NewBundleRegistry(db)
	m := &evidence.Manifest{
		Version:          evidence.ManifestVersion,
		BundleID:         "bnd_abc123",
		TranscriptID:     "t-1",
		View:             evidence.ViewInternal,
		ConstitutionHash: "deadbeef",
		GeneratedAtMs:    1000,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evidence_bundles")).
		WithArgs(m.BundleID, m.TranscriptID, string(m.View), m.ConstitutionHash, m.GeneratedAtMs, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = reg.Record(context.Background(), m)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBundleRegistry_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := NewBundleRegistry(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT manifest_json FROM evidence_bundles WHERE bundle_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"manifest_json"}))

	_, err = reg.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

func TestBundleRegistry_Get_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := NewBundleRegistry(db)
	manifestJSON := []byte(`{"version":"evidence-bundle/1.0","bundle_id":"bnd_abc123","transcript_id":"t-1","view":"internal","generated_at_ms":1000,"constitution_hash":"deadbeef","entries":null,"tool_version":"pactaudit/1.0"}`)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT manifest_json FROM evidence_bundles WHERE bundle_id = $1")).
		WithArgs("bnd_abc123").
		WillReturnRows(sqlmock.NewRows([]string{"manifest_json"}).AddRow(manifestJSON))

	m, err := reg.Get(context.Background(), "bnd_abc123")
	require.NoError(t, err)
	assert.Equal(t, "t-1", m.TranscriptID)
	assert.Equal(t, evidence.ViewInternal, m.View)
}

func TestBundleRegistry_ListByTranscript(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := NewBundleRegistry(db)
	row1 := []byte(`{"bundle_id":"bnd_1","transcript_id":"t-1","generated_at_ms":2000}`)
	row2 := []byte(`{"bundle_id":"bnd_2","transcript_id":"t-1","generated_at_ms":1000}`)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT manifest_json FROM evidence_bundles WHERE transcript_id = $1 ORDER BY generated_at_ms DESC")).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"manifest_json"}).AddRow(row1).AddRow(row2))

	list, err := reg.ListByTranscript(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bnd_1", list[0].BundleID)
	assert.Equal(t, "bnd_2", list[1].BundleID)
}
