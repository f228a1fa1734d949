package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/query"
)

const collectionUsers = "users"

// UserSchema maps the user relations onto their collections.
var UserSchema = Schema{
	Relations: map[string]RelationSpec{
		"department": {Collection: "departments", LocalField: "department_id", ForeignField: "_id"},
		"position":   {Collection: "positions", LocalField: "position_id", ForeignField: "_id"},
		"employee_allowances": {
			Collection: "employee_allowances", LocalField: "_id", ForeignField: "user_id", Many: true,
			Relations: map[string]RelationSpec{
				"allowance": {Collection: "allowances", LocalField: "allowance_id", ForeignField: "_id"},
			},
		},
		"employee_deductions": {
			Collection: "employee_deductions", LocalField: "_id", ForeignField: "user_id", Many: true,
			Relations: map[string]RelationSpec{
				"deduction": {Collection: "deductions", LocalField: "deduction_id", ForeignField: "_id"},
			},
		},
		"payroll": {Collection: "payrolls", LocalField: "_id", ForeignField: "user_id", Many: true},
	},
	ObjectIDFields: []string{"_id", "department_id", "position_id"},
}

var withPosition = query.Include{"position": {}}

type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers), now: time.Now}
}

type userDocument struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty"`
	FirstName        string              `bson:"first_name"`
	LastName         string              `bson:"last_name"`
	Email            string              `bson:"email"`
	PasswordHash     string              `bson:"password_hash"`
	Role             string              `bson:"role"`
	EmploymentStatus string              `bson:"employment_status,omitempty"`
	DepartmentID     *primitive.ObjectID `bson:"department_id,omitempty"`
	PositionID       *primitive.ObjectID `bson:"position_id,omitempty"`
	Metadata         bson.M              `bson:"metadata,omitempty"`
	IsDeleted        bool                `bson:"is_deleted"`
	DeletedAt        *time.Time          `bson:"deleted_at,omitempty"`
	CreatedAt        time.Time           `bson:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at"`
}

// userView is a user document with its looked-up relations.
type userView struct {
	userDocument       `bson:",inline"`
	Department         *domain.Department         `bson:"department,omitempty"`
	Position           *domain.Position           `bson:"position,omitempty"`
	EmployeeAllowances []domain.EmployeeAllowance `bson:"employee_allowances,omitempty"`
	EmployeeDeductions []domain.EmployeeDeduction `bson:"employee_deductions,omitempty"`
	Payroll            []domain.Payroll           `bson:"payroll,omitempty"`
}

func newUserDocument(u *domain.User) (userDocument, error) {
	doc := userDocument{
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		EmploymentStatus: string(u.EmploymentStatus),
		Metadata:         u.Metadata,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	var err error
	if doc.DepartmentID, err = optionalObjectID(u.DepartmentID); err != nil {
		return doc, fmt.Errorf("department_id: %w", err)
	}
	if doc.PositionID, err = optionalObjectID(u.PositionID); err != nil {
		return doc, fmt.Errorf("position_id: %w", err)
	}
	return doc, nil
}

func (d userDocument) toDomain() *domain.User {
	u := &domain.User{
		ID:               d.ID.Hex(),
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		Role:             domain.Role(d.Role),
		EmploymentStatus: domain.EmploymentStatus(d.EmploymentStatus),
		Metadata:         d.Metadata,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		DeletedAt:        d.DeletedAt,
	}
	if d.DepartmentID != nil {
		u.DepartmentID = d.DepartmentID.Hex()
	}
	if d.PositionID != nil {
		u.PositionID = d.PositionID.Hex()
	}
	return u
}

func (v userView) toDomain() *domain.User {
	u := v.userDocument.toDomain()
	u.Department = v.Department
	u.Position = v.Position
	u.EmployeeAllowances = v.EmployeeAllowances
	u.EmployeeDeductions = v.EmployeeDeductions
	u.Payroll = v.Payroll
	return u
}

func optionalObjectID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

func live(filter bson.D) bson.D {
	return append(filter, bson.E{Key: "is_deleted", Value: false})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, live(bson.D{{Key: "email", Value: email}}), withPosition)
}

func (r *UserRepository) FindByID(ctx context.Context, id string, include query.Include) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, live(bson.D{{Key: "_id", Value: oid}}), include)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D, include query.Include) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	includes, err := UserSchema.IncludeStages(include)
	if err != nil {
		return nil, err
	}
	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$limit", Value: 1}},
	}, includes...)

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		return nil, domain.ErrUserNotFound
	}
	var v userView
	if err := cur.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return v.toDomain(), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, live(bson.D{{Key: "email", Value: email}}), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := newUserDocument(user)
	if err != nil {
		return nil, domain.BadRequest("Invalid reference", domain.FieldError{Field: "user", Message: err.Error()})
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, domain.ErrRegistrationFailed
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, live(bson.D{{Key: "email", Value: email}}), bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: r.now().UTC()},
	}}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	res, err := r.col.UpdateOne(ctx, live(bson.D{{Key: "_id", Value: oid}}), bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_deleted", Value: true},
		{Key: "deleted_at", Value: now},
		{Key: "updated_at", Value: now},
	}}})
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List runs d as an aggregation and a separate count over the same match.
func (r *UserRepository) List(ctx context.Context, d query.Descriptor) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline, err := UserSchema.Pipeline(d)
	if err != nil {
		return nil, 0, err
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var views []userView
	if err := cur.All(ctx, &views); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	total, err := r.count(ctx, d)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*domain.User, 0, len(views))
	for _, v := range views {
		users = append(users, v.toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) count(ctx context.Context, d query.Descriptor) (int64, error) {
	pipeline, err := UserSchema.CountPipeline(d)
	if err != nil {
		return 0, err
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	defer cur.Close(ctx)

	var row struct {
		Total int64 `bson:"total"`
	}
	if !cur.Next(ctx) {
		return 0, cur.Err()
	}
	if err := cur.Decode(&row); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return row.Total, nil
}

// EnsureIndexes creates necessary indexes on the users collection. Email is
// unique among live users only, so a soft-deleted address can register again.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "is_deleted", Value: false}}),
		},
		{Keys: bson.D{{Key: "department_id", Value: 1}}},
		{Keys: bson.D{{Key: "position_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
