// Package fixtures provides builders and canned datasets for engine tests.
package fixtures

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	appbuilder "tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/domain/journey"
)

// VisitBuilder helps create visit signals with default values.
type VisitBuilder struct {
	visit journey.Visit
}

func NewVisitBuilder() *VisitBuilder {
	return &VisitBuilder{
		visit: journey.Visit{
			SessionID: uuid.New().String(),
			Intent:    "search",
			Source:    "organic",
			ContentID: "paris-hotels",
			Timestamp: time.Now(),
		},
	}
}

func (b *VisitBuilder) WithSession(id string) *VisitBuilder {
	b.visit.SessionID = id
	return b
}

func (b *VisitBuilder) WithIntent(intent string) *VisitBuilder {
	b.visit.Intent = intent
	return b
}

func (b *VisitBuilder) WithSource(source string) *VisitBuilder {
	b.visit.Source = source
	return b
}

func (b *VisitBuilder) WithContent(contentID string) *VisitBuilder {
	b.visit.ContentID = contentID
	return b
}

func (b *VisitBuilder) Build() journey.Visit {
	return b.visit
}

// ConversionBuilder helps create conversion signals with default values.
type ConversionBuilder struct {
	conv journey.Conversion
}

func NewConversionBuilder() *ConversionBuilder {
	return &ConversionBuilder{
		conv: journey.Conversion{
			SessionID: uuid.New().String(),
			Outcome:   "booking",
			Value:     100,
			Timestamp: time.Now(),
		},
	}
}

func (b *ConversionBuilder) WithSession(id string) *ConversionBuilder {
	b.conv.SessionID = id
	return b
}

func (b *ConversionBuilder) WithOutcome(outcome string) *ConversionBuilder {
	b.conv.Outcome = outcome
	return b
}

func (b *ConversionBuilder) WithValue(value float64) *ConversionBuilder {
	b.conv.Value = value
	return b
}

func (b *ConversionBuilder) Build() journey.Conversion {
	return b.conv
}

// BounceBuilder helps create bounce signals with default values.
type BounceBuilder struct {
	bounce journey.Bounce
}

func NewBounceBuilder() *BounceBuilder {
	return &BounceBuilder{
		bounce: journey.Bounce{
			SessionID: uuid.New().String(),
			Timestamp: time.Now(),
		},
	}
}

func (b *BounceBuilder) WithSession(id string) *BounceBuilder {
	b.bounce.SessionID = id
	return b
}

func (b *BounceBuilder) WithOutcome(outcome string) *BounceBuilder {
	b.bounce.Outcome = outcome
	return b
}

func (b *BounceBuilder) Build() journey.Bounce {
	return b.bounce
}

// MustProcess feeds signals through the builder and panics on rejection;
// for tests that assemble known-good datasets.
func MustProcess(b *appbuilder.Builder, signals ...journey.Signal) {
	for _, sig := range signals {
		if err := b.ProcessSignal(sig); err != nil {
			panic(fmt.Sprintf("fixture signal rejected: %v", err))
		}
	}
}

// SearchVsBrowseSignals returns the canonical comparison dataset in
// ingestion order: two "search" sessions that visit paris-hotels and
// convert, three "browse" sessions that visit blog-post and bounce.
func SearchVsBrowseSignals() []journey.Signal {
	var signals []journey.Signal
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("search-%d", i)
		signals = append(signals,
			NewVisitBuilder().WithSession(id).WithIntent("search").WithContent("paris-hotels").Build(),
			NewConversionBuilder().WithSession(id).WithOutcome("booking").WithValue(100).Build(),
		)
	}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("browse-%d", i)
		signals = append(signals,
			NewVisitBuilder().WithSession(id).WithIntent("browse").WithContent("blog-post").Build(),
			NewBounceBuilder().WithSession(id).Build(),
		)
	}
	return signals
}

// SearchVsBrowse loads the comparison dataset into the builder.
func SearchVsBrowse(b *appbuilder.Builder) {
	MustProcess(b, SearchVsBrowseSignals()...)
}
