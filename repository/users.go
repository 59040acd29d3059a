package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/models"
)

// UserRepository is the usage ledger and user record store. Counter
// fields are only ever changed with atomic $inc updates; callers never
// read-modify-write them.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

// Create inserts a new user with zeroed counters.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.RegistrationDate = time.Now()
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	if user.Status == "" {
		user.Status = models.StatusActivated
	}

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.New(apperr.KindValidation, "user already exists")
		}
		return apperr.Wrap(apperr.KindPersistence, "insert user", err)
	}
	return nil
}

// Get fetches a user by id.
func (r *UserRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("user %s not found", userID)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find user", err)
	}
	return &user, nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("user with email %s not found", email)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "find user by email", err)
	}
	return &user, nil
}

// IncrementChatSequence atomically bumps the user's conversation counter
// and returns the new value. Upserts so a user's first chat initializes
// the ledger row.
func (r *UserRepository) IncrementChatSequence(ctx context.Context, userID string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"chat_sequence": 1}},
		opts,
	).Decode(&user)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "increment chat sequence", err)
	}
	return user.ChatSequence, nil
}

// AddTokensUsed atomically adds delta to the user's cumulative token
// count and returns the new total.
func (r *UserRepository) AddTokensUsed(ctx context.Context, userID string, delta int64) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"tokens_used": delta}},
		opts,
	).Decode(&user)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "add tokens used", err)
	}
	return user.TokensUsed, nil
}

// GetTokensUsed returns the user's cumulative token count; a user with
// no ledger row yet has used zero tokens.
func (r *UserRepository) GetTokensUsed(ctx context.Context, userID string) (int64, error) {
	user, err := r.Get(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.TokensUsed, nil
}

// GetChatSequence returns the user's current conversation sequence, the
// total number of exchanges they have had across all courses.
func (r *UserRepository) GetChatSequence(ctx context.Context, userID string) (int64, error) {
	user, err := r.Get(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.ChatSequence, nil
}

// SetRole updates a user's role.
func (r *UserRepository) SetRole(ctx context.Context, userID, role string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"role": role}},
	)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "set user role", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("user %s not found", userID)
	}
	return nil
}

// SetStatus activates or deactivates a user.
func (r *UserRepository) SetStatus(ctx context.Context, userID, status string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, "set user status", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("user %s not found", userID)
	}
	return nil
}

// ListOverBudget returns users whose cumulative tokens meet or exceed
// the given threshold, for the alert scan.
func (r *UserRepository) ListOverBudget(ctx context.Context, threshold int64) ([]models.User, error) {
	cursor, err := r.col.Find(ctx, bson.M{"tokens_used": bson.M{"$gte": threshold}})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "list users over budget", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "decode users over budget", err)
	}
	return users, nil
}

// AverageTokensUsed aggregates the mean cumulative token count across
// all users.
func (r *UserRepository) AverageTokensUsed(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"avg": bson.M{"$avg": "$tokens_used"},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "aggregate average tokens", err)
	}
	defer cursor.Close(ctx)

	var out []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, "decode average tokens", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Avg, nil
}
