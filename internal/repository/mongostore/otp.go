package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mailauth/mailauth/internal/model"
)

type otpDocument struct {
	ID        bson.ObjectID `bson:"_id"`
	Email     string        `bson:"email"`
	CodeHash  string        `bson:"otp"`
	ExpiresAt time.Time     `bson:"expireAt"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d otpDocument) toModel() model.OTPRecord {
	return model.OTPRecord{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		CodeHash:  d.CodeHash,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

// CreateOTP inserts a new OTP record and assigns its ID.
func (s *Store) CreateOTP(ctx context.Context, otp *model.OTPRecord) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}

	doc := otpDocument{
		ID:        bson.NewObjectID(),
		Email:     otp.Email,
		CodeHash:  otp.CodeHash,
		ExpiresAt: otp.ExpiresAt,
		CreatedAt: otp.CreatedAt,
	}
	if _, err := s.otps.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	otp.ID = doc.ID.Hex()
	return nil
}

// FindOTPsByEmail returns all OTP records for email, oldest first.
func (s *Store) FindOTPsByEmail(ctx context.Context, email string) ([]model.OTPRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.otps.Find(ctx, bson.D{{Key: "email", Value: email}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query otps: %w", err)
	}

	var docs []otpDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode otps: %w", err)
	}

	records := make([]model.OTPRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toModel())
	}
	return records, nil
}

// DeleteOTPsByEmail removes every OTP record for email.
func (s *Store) DeleteOTPsByEmail(ctx context.Context, email string) (int64, error) {
	res, err := s.otps.DeleteMany(ctx, bson.D{{Key: "email", Value: email}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete otps: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteExpiredOTPs removes records whose expiry is before now.
func (s *Store) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.otps.DeleteMany(ctx, bson.D{{Key: "expireAt", Value: bson.D{{Key: "$lt", Value: now}}}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return res.DeletedCount, nil
}
