package domain

import "fmt"

// HoldingKey is the composite identity of a holding.
type HoldingKey struct {
	ProviderID string
	PackageID  string
	TitleID    string
}

// String returns the key in provider-package-title form.
func (k HoldingKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.ProviderID, k.PackageID, k.TitleID)
}

// HoldingRecord is a single title held in a package by a provider.
type HoldingRecord struct {
	// ProviderID is the vendor identifier of the content provider.
	ProviderID string

	// PackageID is the vendor identifier of the package.
	PackageID string

	// TitleID is the vendor identifier of the title.
	TitleID string

	// VendorName is the human-readable provider name.
	VendorName string

	// PackageName is the human-readable package name.
	PackageName string

	// TitleName is the publication title.
	TitleName string

	// PublisherName is the publisher of the title.
	PublisherName string

	// ResourceType is the publication type (e.g., "Book", "Journal").
	ResourceType string
}

// Key returns the composite identity of the record.
func (h HoldingRecord) Key() HoldingKey {
	return HoldingKey{
		ProviderID: h.ProviderID,
		PackageID:  h.PackageID,
		TitleID:    h.TitleID,
	}
}

// Validate checks that every identity component is present.
func (h HoldingRecord) Validate() error {
	if h.ProviderID == "" || h.PackageID == "" || h.TitleID == "" {
		return fmt.Errorf("%w: holding %s is missing an identifier", ErrInvalidInput, h.Key())
	}
	return nil
}

// ChangeType represents the kind of change carried by a delta report row.
type ChangeType string

const (
	// ChangeAdded indicates a holding present only in the current transaction.
	ChangeAdded ChangeType = "added"

	// ChangeUpdated indicates a holding whose descriptive fields changed.
	ChangeUpdated ChangeType = "updated"

	// ChangeDeleted indicates a holding removed since the previous transaction.
	ChangeDeleted ChangeType = "deleted"
)

// HoldingChange is one row of a delta report.
type HoldingChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Holding is the affected record. For deletions only the key is meaningful.
	Holding HoldingRecord
}
