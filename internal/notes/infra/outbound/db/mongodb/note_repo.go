package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/davicafu/notelab/internal/notes/domain"
	sharedUtils "github.com/davicafu/notelab/internal/shared/infra/utils"
)

// NoteRepoMongoDB implementa la interfaz NoteRepository para MongoDB.
type NoteRepoMongoDB struct {
	client   *mongo.Client
	dbName   string
	notes    *mongo.Collection
	idemColl *mongo.Collection
}

// NewNoteRepoMongoDB es el constructor del repositorio.
func NewNoteRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*NoteRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &NoteRepoMongoDB{
		client:   client,
		dbName:   dbName,
		notes:    db.Collection("notes"),
		idemColl: db.Collection("idempotency"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoNote struct {
	ID        uuid.UUID `bson:"_id"`
	UserID    string    `bson:"userId"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type mongoIdempotency struct {
	UserID    string    `bson:"userId"`
	Key       string    `bson:"key"`
	AppliedAt time.Time `bson:"appliedAt"`
}

func toMongoNote(n *domain.Note) mongoNote {
	return mongoNote{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func fromMongoNote(m *mongoNote) *domain.Note {
	return &domain.Note{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *NoteRepoMongoDB) insertIdempotency(sessCtx mongo.SessionContext, userID, key string) error {
	_, err := r.idemColl.InsertOne(sessCtx, mongoIdempotency{
		UserID:    userID,
		Key:       key,
		AppliedAt: time.Now().UTC(),
	})
	return err
}

// --- CRUD Transaccional ---

func (r *NoteRepoMongoDB) Create(ctx context.Context, n *domain.Note, idemKey string) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// La transacción asegura que ambas inserciones (nota y clave) sean atómicas.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		mn := toMongoNote(n)
		if _, err := r.notes.InsertOne(sessCtx, mn); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrNoteAlreadyExists
			}
			return nil, err
		}
		if err := r.insertIdempotency(sessCtx, n.UserID, idemKey); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *NoteRepoMongoDB) Update(ctx context.Context, n *domain.Note, idemKey string) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		mn := toMongoNote(n)
		filter := bson.M{"_id": mn.ID, "userId": mn.UserID}
		update := bson.M{"$set": mn}

		res, err := r.notes.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, domain.ErrNoteNotFound
		}

		if err := r.insertIdempotency(sessCtx, n.UserID, idemKey); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *NoteRepoMongoDB) DeleteByID(ctx context.Context, userID string, id uuid.UUID, idemKey string) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.notes.DeleteOne(sessCtx, bson.M{"_id": id, "userId": userID})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, domain.ErrNoteNotFound
		}

		if err := r.insertIdempotency(sessCtx, userID, idemKey); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

// --- Lectura ---

func (r *NoteRepoMongoDB) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Note, error) {
	var mn mongoNote
	err := r.notes.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&mn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return fromMongoNote(&mn), nil
}

func (r *NoteRepoMongoDB) List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error) {
	filter := bson.M{"userId": f.UserID}
	if f.Title != nil {
		filter["title"] = bson.M{"$regex": *f.Title, "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: sharedUtils.Ternary(f.OldestFirst, 1, -1)}})
	if f.Pagination.Limit > 0 {
		opts.SetSkip(int64(f.Pagination.Offset))
		opts.SetLimit(int64(f.Pagination.Limit))
	}

	cursor, err := r.notes.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notes []*domain.Note
	for cursor.Next(ctx) {
		var mn mongoNote
		if err := cursor.Decode(&mn); err != nil {
			return nil, err
		}
		notes = append(notes, fromMongoNote(&mn))
	}
	return notes, cursor.Err()
}

func (r *NoteRepoMongoDB) WasApplied(ctx context.Context, userID, idemKey string) (bool, error) {
	err := r.idemColl.FindOne(ctx, bson.M{"userId": userID, "key": idemKey}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Verificación en tiempo de compilación.
var _ domain.NoteRepository = (*NoteRepoMongoDB)(nil)
