package model

import (
	"strconv"
	"time"
)

// Property is one persisted sensor value. A nil Value records that the sensor was unknown.
type Property struct {
	Id         int64     `json:"id"`
	TimeStamp  time.Time `json:"timestamp"`
	Unit       string    `json:"unit_of_measurement"`
	Value      *string   `json:"value"`
	Identifier string    `json:"identifier"`
	Slug       string    `json:"slug"`
}

func (p Property) Float() (float64, bool) {
	if p.Value == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(*p.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type Properties []Property
