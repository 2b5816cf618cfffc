package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	assert.Equal(t, StatusComplete, Classify(nil))
	assert.Equal(t, StatusComplete, Classify([]Field{}))
	assert.Equal(t, StatusPartial, Classify([]Field{FieldCity}))
	assert.Equal(t, StatusPartial, Classify([]Field{FieldAddress, FieldCity, FieldZipCode}))
	assert.Equal(t, StatusMissingData, Classify([]Field{FieldAddress, FieldCity, FieldZipCode, FieldCoordinates}))
}

func TestClassify_IgnoresCensusTract(t *testing.T) {
	assert.Equal(t, StatusComplete, Classify([]Field{FieldCensusTract}))
	assert.Equal(t, StatusPartial, Classify([]Field{FieldAddress, FieldCity, FieldZipCode, FieldCensusTract}))
	assert.Equal(t, StatusMissingData, Classify([]Field{
		FieldAddress, FieldCity, FieldZipCode, FieldCoordinates, FieldCensusTract,
	}))
}

func TestEnrichmentResult_HasCoordinates(t *testing.T) {
	lat, lng := 39.7, -121.8
	r := EnrichmentResult{Latitude: &lat}
	assert.False(t, r.HasCoordinates())
	r.Longitude = &lng
	assert.True(t, r.HasCoordinates())
}

func TestEnrichmentResult_Missing(t *testing.T) {
	r := EnrichmentResult{MissingFields: []Field{FieldZipCode}}
	assert.True(t, r.Missing(FieldZipCode))
	assert.False(t, r.Missing(FieldCity))
}

func TestBatchImportResult_ErrorCap(t *testing.T) {
	r := NewBatchImportResult()
	for i := 0; i < 10000; i++ {
		r.Fail(fmt.Sprintf("id-%d: boom", i))
	}
	assert.Equal(t, 10000, r.FailedCount)
	assert.Len(t, r.Errors, MaxImportErrors)
	assert.Equal(t, "id-0: boom", r.Errors[0])
	assert.Equal(t, "id-199: boom", r.Errors[MaxImportErrors-1])
}

func TestBatchImportResult_Merge(t *testing.T) {
	a := NewBatchImportResult()
	a.SuccessCount = 2
	for i := 0; i < 150; i++ {
		a.Fail("a")
	}
	b := BatchImportResult{SuccessCount: 1, SkippedCount: 4, FailedCount: 100}
	for i := 0; i < 100; i++ {
		b.Errors = append(b.Errors, "b")
	}

	a.Merge(b)
	assert.Equal(t, 3, a.SuccessCount)
	assert.Equal(t, 250, a.FailedCount)
	assert.Equal(t, 4, a.SkippedCount)
	assert.Equal(t, 257, a.Total())
	assert.Len(t, a.Errors, MaxImportErrors)
}

func TestBatchImportResult_Counts(t *testing.T) {
	r := NewBatchImportResult()
	r.SuccessCount = 1
	r.Fail("x")
	c := r.Counts()
	assert.Equal(t, 1, c.SuccessCount)
	assert.Equal(t, 1, c.FailedCount)
	assert.Nil(t, c.Errors)
}

func TestListing_Identifier(t *testing.T) {
	l := Listing{Address: "100 Main St"}
	assert.Equal(t, "100 Main St", l.Identifier())
	l.APN = "007-101-022"
	assert.Equal(t, "007-101-022", l.Identifier())
}
