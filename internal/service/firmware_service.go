package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"postura/api/internal/apperr"
	"postura/api/internal/ids"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

// MaxFirmwareBytes bounds a single firmware image.
const MaxFirmwareBytes = 32 << 20

type FirmwareService struct {
	firmware   FirmwareStore
	blobs      BlobStore
	bucket     string
	presignTTL time.Duration
	factory    *security.TokenFactory
	log        zerolog.Logger
}

func NewFirmwareService(firmware FirmwareStore, blobs BlobStore, bucket string, presignTTL time.Duration, factory *security.TokenFactory, log zerolog.Logger) *FirmwareService {
	return &FirmwareService{
		firmware:   firmware,
		blobs:      blobs,
		bucket:     bucket,
		presignTTL: presignTTL,
		factory:    factory,
		log:        log,
	}
}

type FirmwareRelease struct {
	models.Firmware
	DownloadURL string `json:"downloadUrl"`
}

// Latest returns the newest firmware of the requested type with a
// time-limited download URL.
func (s *FirmwareService) Latest(ctx context.Context, query map[string]any) (FirmwareRelease, error) {
	normalized, err := validate(query, validation.FirmwareQueryFields, validation.Options{})
	if err != nil {
		return FirmwareRelease{}, err
	}
	typ, _ := normalized["type"].(string)

	fw, err := s.firmware.Latest(ctx, models.FirmwareType(typ))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return FirmwareRelease{}, apperr.NotFound("No firmware available")
		}
		return FirmwareRelease{}, apperr.Dependency(err)
	}

	url, err := s.blobs.PresignGet(ctx, fw.Bucket, fw.ObjectKey, s.presignTTL)
	if err != nil {
		return FirmwareRelease{}, apperr.Dependency(err)
	}
	return FirmwareRelease{Firmware: fw, DownloadURL: url}, nil
}

// Publish stores a firmware image and records it as a release.
func (s *FirmwareService) Publish(ctx context.Context, fields map[string]any, file io.Reader) (models.Firmware, error) {
	normalized, err := validate(fields, validation.FirmwareFields, validation.Options{})
	if err != nil {
		return models.Firmware{}, err
	}
	var in struct {
		Type         string `json:"type"`
		Version      string `json:"version"`
		ReleaseNotes string `json:"releaseNotes"`
	}
	if err := validation.Decode(normalized, &in); err != nil {
		return models.Firmware{}, apperr.Dependency(err)
	}
	if file == nil {
		return models.Firmware{}, apperr.Validation(`"file" is required`)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxFirmwareBytes+1))
	if err != nil {
		return models.Firmware{}, apperr.Dependency(fmt.Errorf("read firmware: %w", err))
	}
	if len(data) == 0 {
		return models.Firmware{}, apperr.Validation(`"file" is not allowed to be empty`)
	}
	if len(data) > MaxFirmwareBytes {
		return models.Firmware{}, apperr.Validation(fmt.Sprintf(`"file" must be at most %d bytes`, MaxFirmwareBytes))
	}

	major, minor, patch := parseVersion(in.Version)
	sum := sha256.Sum256(data)
	fw := models.Firmware{
		Type:         models.FirmwareType(in.Type),
		Version:      in.Version,
		Major:        major,
		Minor:        minor,
		Patch:        patch,
		Bucket:       s.bucket,
		ObjectKey:    path.Join("firmware", strings.ToLower(in.Type), in.Version, ids.New()+".bin"),
		Checksum:     hex.EncodeToString(sum[:]),
		SizeBytes:    int64(len(data)),
		ReleaseNotes: in.ReleaseNotes,
		CreatedAt:    s.factory.Now(),
	}

	if err := s.blobs.Put(ctx, fw.Bucket, fw.ObjectKey, bytes.NewReader(data), fw.SizeBytes, "application/octet-stream"); err != nil {
		return models.Firmware{}, apperr.Dependency(err)
	}
	if err := s.firmware.Create(ctx, &fw); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Firmware{}, apperr.Conflict("Firmware version already published")
		}
		return models.Firmware{}, apperr.Dependency(err)
	}

	s.log.Info().Str("type", in.Type).Str("version", in.Version).Str("object_key", fw.ObjectKey).Msg("firmware published")
	return fw, nil
}

// parseVersion expects a validated major.minor.patch string.
func parseVersion(version string) (int, int, int) {
	parts := strings.SplitN(version, ".", 3)
	nums := [3]int{}
	for i := 0; i < len(parts) && i < 3; i++ {
		nums[i], _ = strconv.Atoi(parts[i])
	}
	return nums[0], nums[1], nums[2]
}
