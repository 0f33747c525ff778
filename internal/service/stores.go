package service

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByFacebookID(ctx context.Context, facebookID string) (models.User, error)
	EmailTakenByOther(ctx context.Context, email string, id primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch, now time.Time) (models.User, error)
	SetConfirmationToken(ctx context.Context, id primitive.ObjectID, token string, expiry, now time.Time) (models.User, error)
	ConfirmEmail(ctx context.Context, token string, now time.Time) (models.User, error)
	SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry, now time.Time) error
	ConsumePasswordResetToken(ctx context.Context, token string, now time.Time, hash []byte) (models.User, error)
	LinkFacebook(ctx context.Context, id primitive.ObjectID, facebookID string, now time.Time) (models.User, error)
	RecordSession(ctx context.Context, id primitive.ObjectID, streak int, at time.Time) (models.User, error)
}

type TokenStore interface {
	Create(ctx context.Context, token models.AccessToken) error
	FindByToken(ctx context.Context, token string) (models.AccessToken, error)
	DeleteByToken(ctx context.Context, token string) error
}

type InternalUserStore interface {
	Create(ctx context.Context, user *models.InternalUser) error
	FindByEmail(ctx context.Context, email string) (models.InternalUser, error)
	FindByAccessToken(ctx context.Context, token string) (models.InternalUser, error)
	SetAccessToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearAccessToken(ctx context.Context, token string) error
}

type FirmwareStore interface {
	Create(ctx context.Context, fw *models.Firmware) error
	Latest(ctx context.Context, typ models.FirmwareType) (models.Firmware, error)
}

type TicketStore interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	UpdateStatus(ctx context.Context, reference string, status models.TicketStatus) error
}

// BlobStore holds firmware binaries.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// TicketQueue hands a stored ticket to the support mail worker.
type TicketQueue interface {
	Enqueue(ctx context.Context, ticket models.SupportTicket) error
}

type Mailer interface {
	SendConfirmationEmail(ctx context.Context, address, token string) error
	SendPasswordResetEmail(ctx context.Context, address, token string) error
	SendPasswordResetSuccessEmail(ctx context.Context, address string) error
	SendSupportEmail(ctx context.Context, fromAddress, subject, message, reference string) error
}
