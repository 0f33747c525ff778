package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FirmwareType string

const (
	FirmwareTypeApp        FirmwareType = "APP"
	FirmwareTypeBootloader FirmwareType = "BOOTLOADER"
)

type Firmware struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Type         FirmwareType       `bson:"type" json:"type"`
	Version      string             `bson:"version" json:"version"`
	Major        int                `bson:"major" json:"-"`
	Minor        int                `bson:"minor" json:"-"`
	Patch        int                `bson:"patch" json:"-"`
	Bucket       string             `bson:"bucket" json:"-"`
	ObjectKey    string             `bson:"objectKey" json:"-"`
	Checksum     string             `bson:"checksum" json:"checksum"`
	SizeBytes    int64              `bson:"sizeBytes" json:"sizeBytes"`
	ReleaseNotes string             `bson:"releaseNotes,omitempty" json:"releaseNotes,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

type TicketStatus string

const (
	TicketStatusQueued TicketStatus = "QUEUED"
	TicketStatusSent   TicketStatus = "SENT"
	TicketStatusFailed TicketStatus = "FAILED"
)

type SupportTicket struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Reference string             `bson:"reference" json:"reference"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Email     string             `bson:"email" json:"email"`
	Subject   string             `bson:"subject" json:"subject"`
	Message   string             `bson:"message" json:"message"`
	Status    TicketStatus       `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
