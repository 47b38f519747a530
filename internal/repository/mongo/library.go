package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediaplayer/internal/domain"
)

// LibraryRepository stores the canonical media set. ReplaceAll builds the
// merged set in a staging collection and renames it over the live one;
// renameCollection with dropTarget is atomic on the server, so readers see
// either the old set or the new one and a failed build never touches live
// data.
type LibraryRepository struct {
	client     *mongo.Client
	dbName     string
	collection *mongo.Collection
}

type mediaDoc struct {
	ID            string `bson:"_id"`
	Title         string `bson:"title"`
	SourceLocator string `bson:"sourceLocator"`
	DurationMs    int64  `bson:"durationMs"`
	SizeBytes     int64  `bson:"sizeBytes"`
	FolderName    string `bson:"folderName"`
	FolderPath    string `bson:"folderPath"`
	DateAddedUnix int64  `bson:"dateAdded"`
	PositionMs    int64  `bson:"positionMs"`
	PlayedAtMs    int64  `bson:"playedAtMs"`
}

type resumeDoc struct {
	ID         string `bson:"_id"`
	PositionMs int64  `bson:"positionMs"`
	PlayedAtMs int64  `bson:"playedAtMs"`
}

const libraryCollection = "library"

func NewLibraryRepository(client *mongo.Client, dbName string) *LibraryRepository {
	return &LibraryRepository{
		client:     client,
		dbName:     dbName,
		collection: client.Database(dbName).Collection(libraryCollection),
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *LibraryRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "folderPath", Value: 1}}},
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "dateAdded", Value: -1}}},
		{Keys: bson.D{{Key: "playedAtMs", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *LibraryRepository) ReadAllResume(ctx context.Context) (map[domain.MediaID]domain.ResumeState, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "positionMs": 1, "playedAtMs": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []resumeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make(map[domain.MediaID]domain.ResumeState, len(docs))
	for _, doc := range docs {
		out[domain.MediaID(doc.ID)] = domain.ResumeState{
			PositionMs:     doc.PositionMs,
			PlayedAtUnixMs: doc.PlayedAtMs,
		}
	}
	return out, nil
}

func (r *LibraryRepository) ReplaceAll(ctx context.Context, items []domain.MediaItem) error {
	db := r.client.Database(r.dbName)
	stagingName := libraryCollection + "_staging"
	staging := db.Collection(stagingName)

	if err := staging.Drop(ctx); err != nil {
		return fmt.Errorf("drop staging: %w", err)
	}
	// Create explicitly so renaming an empty set still works.
	if err := db.CreateCollection(ctx, stagingName); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	if len(items) > 0 {
		docs := make([]interface{}, 0, len(items))
		for _, item := range items {
			docs = append(docs, toDoc(item))
		}
		if _, err := staging.InsertMany(ctx, docs); err != nil {
			_ = staging.Drop(ctx)
			return fmt.Errorf("stage items: %w", err)
		}
	}

	// Atomic swap: the live collection is replaced in a single server-side
	// operation. On failure the staged data is discarded and the live set
	// stands.
	cmd := bson.D{
		{Key: "renameCollection", Value: r.dbName + "." + stagingName},
		{Key: "to", Value: r.dbName + "." + libraryCollection},
		{Key: "dropTarget", Value: true},
	}
	if err := r.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		_ = staging.Drop(ctx)
		return fmt.Errorf("swap collections: %w", err)
	}
	return nil
}

func (r *LibraryRepository) UpdateResume(ctx context.Context, id domain.MediaID, resume domain.ResumeState) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{
			"positionMs": resume.PositionMs,
			"playedAtMs": resume.PlayedAtUnixMs,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LibraryRepository) Get(ctx context.Context, id domain.MediaID) (domain.MediaItem, error) {
	var doc mediaDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.MediaItem{}, domain.ErrNotFound
		}
		return domain.MediaItem{}, err
	}
	return fromDoc(doc), nil
}

func (r *LibraryRepository) List(ctx context.Context, filter domain.LibraryFilter) ([]domain.MediaItem, error) {
	query := bson.M{}
	if filter.FolderPath != "" {
		query["folderPath"] = filter.FolderPath
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query["title"] = bson.M{
			"$regex":   regexp.QuoteMeta(search),
			"$options": "i",
		}
	}

	field, ok := sortField(filter.SortBy)
	if !ok {
		field = "dateAdded"
	}
	direction := 1
	if filter.SortOrder == domain.SortDesc {
		direction = -1
	}

	opts := options.Find().SetSort(bson.D{{Key: field, Value: direction}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mediaDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func (r *LibraryRepository) ListRecent(ctx context.Context, limit int) ([]domain.MediaItem, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "playedAtMs", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"playedAtMs": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mediaDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func toDoc(item domain.MediaItem) mediaDoc {
	return mediaDoc{
		ID:            string(item.ID),
		Title:         item.Title,
		SourceLocator: item.SourceLocator,
		DurationMs:    item.DurationMs,
		SizeBytes:     item.SizeBytes,
		FolderName:    item.FolderName,
		FolderPath:    item.FolderPath,
		DateAddedUnix: item.DateAddedUnix,
		PositionMs:    item.Resume.PositionMs,
		PlayedAtMs:    item.Resume.PlayedAtUnixMs,
	}
}

func fromDoc(doc mediaDoc) domain.MediaItem {
	return domain.MediaItem{
		ID:            domain.MediaID(doc.ID),
		Title:         doc.Title,
		SourceLocator: doc.SourceLocator,
		DurationMs:    doc.DurationMs,
		SizeBytes:     doc.SizeBytes,
		FolderName:    doc.FolderName,
		FolderPath:    doc.FolderPath,
		DateAddedUnix: doc.DateAddedUnix,
		Resume: domain.ResumeState{
			PositionMs:     doc.PositionMs,
			PlayedAtUnixMs: doc.PlayedAtMs,
		},
	}
}

func fromDocs(docs []mediaDoc) []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, fromDoc(doc))
	}
	return items
}

func sortField(sortBy string) (string, bool) {
	switch sortBy {
	case "title":
		return "title", true
	case "dateAdded":
		return "dateAdded", true
	case "sizeBytes":
		return "sizeBytes", true
	case "durationMs":
		return "durationMs", true
	case "folderPath":
		return "folderPath", true
	default:
		return "", false
	}
}
