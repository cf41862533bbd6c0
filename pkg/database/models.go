package database

import (
	"time"

	"gorm.io/gorm"
)

// CallRecord represents a single completed call observed on any supported
// protocol. It is written once the call-end condition fires for a logical
// channel (voice terminator frame, superframe close, or timeout).
type CallRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Protocol    string    `gorm:"index;size:16;not null" json:"protocol"`
	SourceID    uint32    `gorm:"index;not null" json:"source_id"`
	TalkgroupID uint32    `gorm:"index;not null" json:"talkgroup_id"`
	Timeslot    int       `gorm:"not null" json:"timeslot"`
	Frequency   uint64    `gorm:"index" json:"frequency_hz"`
	Duration    float64   `gorm:"not null" json:"duration"` // seconds
	StreamID    string    `gorm:"index" json:"stream_id"`
	Encrypted   bool      `gorm:"not null;default:false" json:"encrypted"`
	StartTime   time.Time `gorm:"index;not null" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	PacketCount int       `gorm:"default:0" json:"packet_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for CallRecord.
func (CallRecord) TableName() string {
	return "call_records"
}

// BeforeCreate fills in timestamps that the caller left zero.
func (c *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.StartTime.IsZero() {
		c.StartTime = time.Now()
	}
	if c.EndTime.IsZero() {
		c.EndTime = time.Now()
	}
	return nil
}

// DMRUser is one entry of the public radioid.net DMR ID directory, used
// to resolve a DMR source ID to a callsign when no over-the-air talker
// alias was sent for the call.
type DMRUser struct {
	RadioID   uint32    `gorm:"primarykey;not null" json:"radio_id"`
	Callsign  string    `gorm:"index;size:20" json:"callsign"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`
	City      string    `gorm:"size:50" json:"city"`
	State     string    `gorm:"size:50" json:"state"`
	Country   string    `gorm:"size:50" json:"country"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for DMRUser.
func (DMRUser) TableName() string {
	return "dmr_users"
}

// FullName returns the user's full name, falling back gracefully when
// only one of FirstName/LastName is populated.
func (u *DMRUser) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.LastName
}

// Location returns a formatted "City, State, Country" string, omitting
// any empty component.
func (u *DMRUser) Location() string {
	parts := make([]string, 0, 3)
	if u.City != "" {
		parts = append(parts, u.City)
	}
	if u.State != "" {
		parts = append(parts, u.State)
	}
	if u.Country != "" {
		parts = append(parts, u.Country)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
