package entity

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Ticker is the static profile of one tracked stock: its symbol plus the
// company-name aliases used to retrieve posts. Immutable during a sweep.
type Ticker struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Symbol    string         `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string         `gorm:"not null" json:"name"`
	Aliases   pq.StringArray `gorm:"type:text[]" json:"aliases"`
	Active    bool           `gorm:"default:true" json:"active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Ticker model.
func (Ticker) TableName() string {
	return "tickers"
}

// SearchTerms returns the lowercase symbol followed by the lowercase
// aliases, the literal terms used for post retrieval and recorded on every
// signal for auditability.
func (t *Ticker) SearchTerms() []string {
	terms := make([]string, 0, len(t.Aliases)+1)
	terms = append(terms, strings.ToLower(t.Symbol))
	for _, alias := range t.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || alias == terms[0] {
			continue
		}
		terms = append(terms, alias)
	}
	return terms
}
