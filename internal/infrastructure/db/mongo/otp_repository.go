package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/compupay/hr-backend/internal/core/domain"
)

const collectionOtps = "otps"

// otpRetention is how long MongoDB keeps a record past its expiry, so late
// verification attempts still report an expired code instead of an unknown one.
const otpRetention = time.Hour

type OtpRepository struct {
	col *mongo.Collection
}

func NewOtpRepository(db *mongo.Database) *OtpRepository {
	return &OtpRepository{col: db.Collection(collectionOtps)}
}

type otpDocument struct {
	Email     string    `bson:"email"`
	Code      string    `bson:"code"`
	ExpiredAt time.Time `bson:"expired_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Upsert replaces the record held for otp.Email, creating it when absent.
func (r *OtpRepository) Upsert(ctx context.Context, otp *domain.Otp) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := otpDocument{
		Email:     otp.Email,
		Code:      otp.Code,
		ExpiredAt: otp.ExpiredAt,
		CreatedAt: otp.CreatedAt,
		UpdatedAt: otp.UpdatedAt,
	}
	_, err := r.col.ReplaceOne(ctx, bson.D{{Key: "email", Value: otp.Email}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OtpRepository) FindByEmail(ctx context.Context, email string) (*domain.Otp, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc otpDocument
	err := r.col.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &domain.Otp{
		Email:     doc.Email,
		Code:      doc.Code,
		ExpiredAt: doc.ExpiredAt,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (r *OtpRepository) Delete(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.D{{Key: "email", Value: email}}); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique email index and the TTL index that purges
// expired codes.
func (r *OtpRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "expired_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(otpRetention.Seconds())),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
