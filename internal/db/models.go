package db

import "time"

// Venue maps listings.venues. Venues are created only by the human-facing add
// flow; automated ingestion resolves against this table and never writes it.
type Venue struct {
	VenueID        int64     `gorm:"column:venue_id;primaryKey;autoIncrement"`
	Name           string    `gorm:"column:name;type:text;not null"`
	NormalizedName string    `gorm:"column:normalized_name;type:text;not null;index"`
	City           *string   `gorm:"column:city;type:text"`
	Address        *string   `gorm:"column:address;type:text"`
	Postcode       *string   `gorm:"column:postcode;type:text"`
	Capacity       *int      `gorm:"column:capacity;type:integer"`
	Email          *string   `gorm:"column:email;type:text"`
	Website        *string   `gorm:"column:website;type:text"`
	Phone          *string   `gorm:"column:phone;type:text"`
	Approved       bool      `gorm:"column:approved;type:boolean;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Venue) TableName() string { return "listings.venues" }

// Event maps listings.events. The fingerprint unique index is what makes
// repeated scraper runs idempotent: the loser of a concurrent duplicate insert
// is rejected by the index, not by application logic.
type Event struct {
	EventID     int64     `gorm:"column:event_id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Date        time.Time `gorm:"column:date;type:timestamptz;not null"`
	VenueID     *int64    `gorm:"column:venue_id;type:bigint;index"`
	Price       *string   `gorm:"column:price;type:text"`
	UserID      string    `gorm:"column:user_id;type:text;not null"`
	Fingerprint string    `gorm:"column:fingerprint;type:text;not null"`
	Approved    bool      `gorm:"column:approved;type:boolean;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Event) TableName() string { return "listings.events" }

func autoMigrateModels() []any {
	return []any{
		&Venue{},
		&Event{},
	}
}
