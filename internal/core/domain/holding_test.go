package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoldingRecord_Key(t *testing.T) {
	h := HoldingRecord{ProviderID: "19", PackageID: "6581", TitleID: "400", TitleName: "Nature"}

	assert.Equal(t, HoldingKey{ProviderID: "19", PackageID: "6581", TitleID: "400"}, h.Key())
	assert.Equal(t, "19-6581-400", h.Key().String())
}

func TestHoldingRecord_Validate(t *testing.T) {
	assert.NoError(t, HoldingRecord{ProviderID: "1", PackageID: "2", TitleID: "3"}.Validate())
	assert.ErrorIs(t, HoldingRecord{ProviderID: "1", PackageID: "2"}.Validate(), ErrInvalidInput)
}

func TestHoldingsLoadStatus_Done(t *testing.T) {
	s := &HoldingsLoadStatus{TotalPages: 3, ImportedPages: 2}
	assert.False(t, s.Done())

	s.ImportedPages = 3
	assert.True(t, s.Done())

	empty := &HoldingsLoadStatus{}
	assert.True(t, empty.Done())
}
