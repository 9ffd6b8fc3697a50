package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const jobsCollection = "jobs"

type jobDoc struct {
	ID          string    `bson:"_id"`
	EmployerID  string    `bson:"employer_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Location    string    `bson:"location"`
	SalaryMin   int64     `bson:"salary_min,omitempty"`
	SalaryMax   int64     `bson:"salary_max,omitempty"`
	Featured    bool      `bson:"featured"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toJobDoc(j *Job) jobDoc {
	return jobDoc{
		ID:          j.ID.String(),
		EmployerID:  j.EmployerID.String(),
		Title:       j.Title,
		Description: j.Description,
		Location:    j.Location,
		SalaryMin:   j.SalaryMin,
		SalaryMax:   j.SalaryMax,
		Featured:    j.Featured,
		Status:      string(j.Status),
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func (d jobDoc) toDomain() (*Job, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", d.ID, err)
	}
	employerID, err := uuid.Parse(d.EmployerID)
	if err != nil {
		return nil, fmt.Errorf("invalid employer id %q: %w", d.EmployerID, err)
	}
	return &Job{
		ID:          id,
		EmployerID:  employerID,
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		SalaryMin:   d.SalaryMin,
		SalaryMax:   d.SalaryMax,
		Featured:    d.Featured,
		Status:      JobStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// MongoStore is the production Store backed by a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a job store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(jobsCollection)}
}

// EnsureIndexes creates the listing and limit-count indexes. Call once at
// startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "employer_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "featured", Value: -1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, job *Job) error {
	if _, err := s.col.InsertOne(ctx, toJobDoc(job)); err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var doc jobDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return doc.toDomain()
}

func (s *MongoStore) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	query := bson.M{"status": string(JobOpen)}
	if filter.Location != "" {
		query["location"] = filter.Location
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	if filter.EmployerID != nil {
		query["employer_id"] = filter.EmployerID.String()
		// Employers see their own closed postings too.
		delete(query, "status")
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(filter.Offset))
	}

	cur, err := s.col.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []jobDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}

	result := make([]Job, 0, len(docs))
	for _, d := range docs {
		job, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, *job)
	}
	return result, nil
}

func (s *MongoStore) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": job.ID.String()}, toJobDoc(job))
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *MongoStore) CountOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{
		"employer_id": employerID.String(),
		"status":      string(JobOpen),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count open jobs: %w", err)
	}
	return n, nil
}

func (s *MongoStore) CountFeaturedOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{
		"employer_id": employerID.String(),
		"status":      string(JobOpen),
		"featured":    true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count featured jobs: %w", err)
	}
	return n, nil
}
