package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Index names; duplicate key errors are told apart by them.
const (
	emailIndex = "email_1"
	phoneIndex = "phone_1"
)

var mongoSortFields = map[string]string{
	models.SortCreatedAt:  "created_at",
	models.SortUpdatedAt:  "updated_at",
	models.SortFullName:   "full_name",
	models.SortUsername:   "username",
	models.SortJobCounts:  "job_counts",
	models.SortExperience: "experience",
	models.SortAge:        "age",
}

type dbRating struct {
	User      string    `bson:"user"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type dbLocation struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// dbAccount is the stored document. Email and phone are omitted when empty
// so the sparse unique indexes ignore accounts without them.
type dbAccount struct {
	ID             string     `bson:"_id"`
	Username       string     `bson:"username"`
	FullName       string     `bson:"full_name"`
	Email          string     `bson:"email,omitempty"`
	Phone          string     `bson:"phone,omitempty"`
	PasswordHash   string     `bson:"password_hash"`
	Salt           string     `bson:"salt"`
	Role           string     `bson:"role"`
	Verified       bool       `bson:"verified"`
	AccountStatus  string     `bson:"account_status"`
	Status         string     `bson:"status"`
	OTP            string     `bson:"otp,omitempty"`
	OTPExpiresAt   *time.Time `bson:"otp_expires_at,omitempty"`
	Bio            string     `bson:"bio"`
	Avatar         string     `bson:"avatar"`
	CNIC           string     `bson:"cnic"`
	CNICFrontImage string     `bson:"cnic_front_image"`
	CNICBackImage  string     `bson:"cnic_back_image"`
	Age            int        `bson:"age"`
	Gender         string     `bson:"gender"`
	Street         string     `bson:"street"`
	State          string     `bson:"state"`
	PostalCode     string     `bson:"postal_code"`
	Country        string     `bson:"country"`
	City           string     `bson:"city"`
	Address        string     `bson:"address"`
	Location       dbLocation `bson:"location"`
	Skills         []string   `bson:"skills"`
	JobCounts      int        `bson:"job_counts"`
	Experience     int        `bson:"experience"`
	Ratings        []dbRating `bson:"ratings"`
	Available      bool       `bson:"available"`
	Featured       bool       `bson:"featured"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(c *mongo.Collection) *MongoRepository {
	return &MongoRepository{collection: c, now: time.Now}
}

// EnsureIndexes creates the unique contact indexes and the listing index.
func EnsureIndexes(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetName(phoneIndex).SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	a := account.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := m.now().UTC().Truncate(time.Millisecond)
	a.CreatedAt, a.UpdatedAt = now, now

	if a.Phone != "" {
		n, err := m.collection.CountDocuments(ctx, bson.M{"phone": a.Phone}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if n > 0 {
			return nil, common.ErrDuplicatePhone
		}
	}

	doc := dbAccountFromAccount(a)
	if _, err := m.collection.InsertOne(ctx, &doc); err != nil {
		return nil, mapMongoWriteError(err)
	}

	return a, nil
}

func (m *MongoRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return m.findBy(ctx, "_id", id)
}

func (m *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.findBy(ctx, "email", email)
}

func (m *MongoRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return m.findBy(ctx, "phone", phone)
}

func (m *MongoRepository) findBy(ctx context.Context, key, val string) (*models.Account, error) {
	var doc dbAccount
	if err := m.collection.FindOne(ctx, bson.M{key: val}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return accountFromDBAccount(doc), nil
}

func (m *MongoRepository) FindMany(ctx context.Context, q models.Query) ([]*models.Account, int64, error) {
	q = q.Normalize()
	filter := buildMongoFilter(q.Filter)

	total, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	opts := options.Find().
		SetSort(mongoSort(q)).
		SetSkip(q.Offset()).
		SetLimit(q.Limit)

	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer cur.Close(ctx)

	result := make([]*models.Account, 0, q.Limit)
	for cur.Next(ctx) {
		var doc dbAccount
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		result = append(result, accountFromDBAccount(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return result, total, nil
}

func (m *MongoRepository) UpdateByID(ctx context.Context, id string, patch models.Patch) (*models.Account, error) {
	update := buildMongoUpdate(patch, m.now().UTC().Truncate(time.Millisecond))

	var doc dbAccount
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, mapMongoWriteError(err)
	}

	return accountFromDBAccount(doc), nil
}

func (m *MongoRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func mapMongoWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, phoneIndex):
			return common.ErrDuplicatePhone
		case strings.Contains(msg, emailIndex):
			return common.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func buildMongoFilter(f models.Filter) bson.M {
	filter := bson.M{}

	if f.FullName != "" {
		filter["full_name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.FullName), Options: "i"}
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.City != "" {
		filter["city"] = f.City
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Verified != nil {
		filter["verified"] = *f.Verified
	}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Available != nil {
		filter["available"] = *f.Available
	}
	if f.JobCounts != nil {
		filter["job_counts"] = *f.JobCounts
	}
	if len(f.Skills) > 0 {
		filter["skills"] = bson.M{"$all": f.Skills}
	}

	return filter
}

func mongoSort(q models.Query) bson.D {
	field, ok := mongoSortFields[q.SortField]
	if !ok {
		field = "created_at"
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

// buildMongoUpdate turns a patch into $set and $unset operators. Clearing
// the one-time code removes both the code and its expiry.
func buildMongoUpdate(p models.Patch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	unset := bson.M{}

	setIf(set, "username", p.Username)
	setIf(set, "full_name", p.FullName)
	// empty contacts are removed so the sparse indexes skip them
	for key, v := range map[string]*string{"email": p.Email, "phone": p.Phone} {
		if v == nil {
			continue
		}
		if *v == "" {
			unset[key] = ""
		} else {
			set[key] = *v
		}
	}
	if p.Credentials != nil {
		set["password_hash"] = p.Credentials.Hash
		set["salt"] = p.Credentials.Salt
	}
	setIf(set, "role", p.Role)
	setIf(set, "verified", p.Verified)
	setIf(set, "account_status", p.AccountStatus)
	setIf(set, "status", p.Status)
	if p.OTP != nil {
		if p.OTP.Code == "" {
			unset["otp"] = ""
			unset["otp_expires_at"] = ""
		} else {
			set["otp"] = p.OTP.Code
			set["otp_expires_at"] = p.OTP.ExpiresAt
		}
	}
	setIf(set, "bio", p.Bio)
	setIf(set, "avatar", p.Avatar)
	setIf(set, "cnic", p.CNIC)
	setIf(set, "cnic_front_image", p.CNICFrontImage)
	setIf(set, "cnic_back_image", p.CNICBackImage)
	setIf(set, "age", p.Age)
	setIf(set, "gender", p.Gender)
	setIf(set, "street", p.Street)
	setIf(set, "state", p.State)
	setIf(set, "postal_code", p.PostalCode)
	setIf(set, "country", p.Country)
	setIf(set, "city", p.City)
	setIf(set, "address", p.Address)
	if p.Location != nil {
		set["location"] = dbLocation{Type: p.Location.Type, Coordinates: p.Location.Coordinates}
	}
	if p.Skills != nil {
		set["skills"] = nonNil(*p.Skills)
	}
	setIf(set, "job_counts", p.JobCounts)
	setIf(set, "experience", p.Experience)
	if p.Ratings != nil {
		set["ratings"] = dbRatings(*p.Ratings)
	}
	setIf(set, "available", p.Available)
	setIf(set, "featured", p.Featured)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func setIf[T any](set bson.M, key string, v *T) {
	if v != nil {
		set[key] = *v
	}
}

func dbRatings(rs []models.Rating) []dbRating {
	out := make([]dbRating, 0, len(rs))
	for _, r := range rs {
		out = append(out, dbRating{User: r.User, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt})
	}
	return out
}

func dbAccountFromAccount(a *models.Account) dbAccount {
	d := dbAccount{
		ID:             a.ID,
		Username:       a.Username,
		FullName:       a.FullName,
		Email:          a.Email,
		Phone:          a.Phone,
		PasswordHash:   a.PasswordHash,
		Salt:           a.Salt,
		Role:           a.Role,
		Verified:       a.Verified,
		AccountStatus:  a.AccountStatus,
		Status:         a.Status,
		Bio:            a.Bio,
		Avatar:         a.Avatar,
		CNIC:           a.CNIC,
		CNICFrontImage: a.CNICFrontImage,
		CNICBackImage:  a.CNICBackImage,
		Age:            a.Age,
		Gender:         a.Gender,
		Street:         a.Street,
		State:          a.State,
		PostalCode:     a.PostalCode,
		Country:        a.Country,
		City:           a.City,
		Address:        a.Address,
		Location:       dbLocation{Type: a.Location.Type, Coordinates: a.Location.Coordinates},
		Skills:         nonNil(a.Skills),
		JobCounts:      a.JobCounts,
		Experience:     a.Experience,
		Ratings:        dbRatings(a.Ratings),
		Available:      a.Available,
		Featured:       a.Featured,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.OTP != nil {
		exp := a.OTP.ExpiresAt
		d.OTP, d.OTPExpiresAt = a.OTP.Code, &exp
	}
	return d
}

func accountFromDBAccount(d dbAccount) *models.Account {
	a := &models.Account{
		ID:             d.ID,
		Username:       d.Username,
		FullName:       d.FullName,
		Email:          d.Email,
		Phone:          d.Phone,
		PasswordHash:   d.PasswordHash,
		Salt:           d.Salt,
		Role:           d.Role,
		Verified:       d.Verified,
		AccountStatus:  d.AccountStatus,
		Status:         d.Status,
		Bio:            d.Bio,
		Avatar:         d.Avatar,
		CNIC:           d.CNIC,
		CNICFrontImage: d.CNICFrontImage,
		CNICBackImage:  d.CNICBackImage,
		Age:            d.Age,
		Gender:         d.Gender,
		Street:         d.Street,
		State:          d.State,
		PostalCode:     d.PostalCode,
		Country:        d.Country,
		City:           d.City,
		Address:        d.Address,
		Location:       models.Location{Type: d.Location.Type, Coordinates: d.Location.Coordinates},
		Skills:         nonNil(d.Skills),
		JobCounts:      d.JobCounts,
		Experience:     d.Experience,
		Ratings:        make([]models.Rating, 0, len(d.Ratings)),
		Available:      d.Available,
		Featured:       d.Featured,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, r := range d.Ratings {
		a.Ratings = append(a.Ratings, models.Rating{User: r.User, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt})
	}
	if d.OTP != "" && d.OTPExpiresAt != nil {
		a.OTP = &models.OneTimeCode{Code: d.OTP, ExpiresAt: *d.OTPExpiresAt}
	}
	return a
}
