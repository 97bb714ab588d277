package models

import "time"

type PackageStatus string

const (
	PackageStatusReceived PackageStatus = "received"
	PackageStatusPickedUp PackageStatus = "picked_up"
)

type Package struct {
	ID         int           `json:"id"`
	DeviceID   string        `json:"deviceId"`
	Timestamp  time.Time     `json:"timestamp"`
	PhotoURL   string        `json:"photoUrl"`
	ThumbURL   string        `json:"thumbUrl"`
	DistanceCm *float64      `json:"distanceCm"`
	Reason     string        `json:"reason"`
	Firmware   string        `json:"firmware"`
	Status     PackageStatus `json:"status"`
	PickedUpAt *time.Time    `json:"pickedUpAt"`
}

type PackageStats struct {
	Total    int      `json:"total"`
	Today    int      `json:"today"`
	ThisWeek int      `json:"thisWeek"`
	Latest   *Package `json:"latest"`
}
