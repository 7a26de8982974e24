package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

const profileCollection = "user_profiles"

// ProfileRepository persists user profiles in the user_profiles collection.
type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(profileCollection)}
}

type profileDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	AuthProviderID string             `bson:"auth_provider_id,omitempty"`
	Email          string             `bson:"email"`
	Name           string             `bson:"name"`
	Role           string             `bson:"role"`
	Department     string             `bson:"department"`
	CreatedAt      int64              `bson:"created_at"`
	LastLogin      int64              `bson:"last_login,omitempty"`
}

func (r *ProfileRepository) FindByAuthProviderID(ctx context.Context, providerID string) (*domain.UserProfile, error) {
	if providerID == "" {
		return nil, domain.ErrProfileNotFound
	}
	return r.findOne(ctx, bson.M{"auth_provider_id": providerID})
}

func (r *ProfileRepository) FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{"email": email, "role": string(role)})
}

func (r *ProfileRepository) FindUnlinkedByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return r.findOne(ctx, bson.M{
		"email":            email,
		"auth_provider_id": bson.M{"$in": []any{nil, ""}},
	})
}

func (r *ProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserProfile, error) {
	var doc profileDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProfileRepository) Insert(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, error) {
	doc := profileDoc{
		AuthProviderID: profile.AuthProviderID,
		Email:          profile.Email,
		Name:           profile.Name,
		Role:           string(profile.Role),
		Department:     profile.Department,
		CreatedAt:      profile.CreatedAt.Unix(),
	}
	if profile.LastLogin != nil {
		doc.LastLogin = profile.LastLogin.Unix()
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	created := *profile
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *ProfileRepository) LinkProvider(ctx context.Context, profileID, providerID string) error {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return fmt.Errorf("link profile: %w", err)
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"auth_provider_id": providerID}})
	if err != nil {
		return fmt.Errorf("link profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) StampLastLogin(ctx context.Context, profileID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return fmt.Errorf("stamp last login: %w", err)
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"last_login": at.Unix()}})
	if err != nil {
		return fmt.Errorf("stamp last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (d *profileDoc) toDomain() *domain.UserProfile {
	p := &domain.UserProfile{
		ID:             d.ID.Hex(),
		AuthProviderID: d.AuthProviderID,
		Email:          d.Email,
		Name:           d.Name,
		Role:           domain.Role(d.Role),
		Department:     d.Department,
		CreatedAt:      unixToTime(d.CreatedAt),
	}
	if d.LastLogin != 0 {
		t := unixToTime(d.LastLogin)
		p.LastLogin = &t
	}
	return p
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
