package entities

import (
	"bytes"
	"encoding/gob"
	"time"
)

type Cleaner struct {
	ID        int64
	Name      string
	Phone     string
	Email     string
	Status    string
	Rating    float64
	TotalJobs int
	Code      string
	CreatedAt time.Time
}

type Property struct {
	ID                  int64
	Name                string
	Address             string
	Bedrooms            int
	Bathrooms           int
	CleaningTimeMinutes int
	Checklist           string
	Notes               string
	Status              string
	CreatedAt           time.Time
}

type Host struct {
	ID    int64
	Name  string
	Phone string
	Code  string
}

// Stats is the aggregate served by the cached stats endpoint.
type Stats struct {
	Properties        int
	AvailableCleaners int
	OpenOrders        int
	CompletedToday    int
}

func (s *Stats) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Stats) Unmarshal(data []byte) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(s)
}

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(o)
}

func init() {
	gob.Register(Order{})
	gob.Register(Stats{})
}
