package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentcore/internal/domain"
	"torrentcore/internal/domain/ports"
)

// Repository persists torrent records in a MongoDB collection, keyed by
// infohash so duplicate adds surface as duplicate key errors.
type Repository struct {
	collection *mongo.Collection
}

var _ ports.TorrentRepository = (*Repository)(nil)

type torrentDoc struct {
	ID         string `bson:"_id"`
	Name       string `bson:"name"`
	State      string `bson:"state"`
	Magnet     string `bson:"magnet,omitempty"`
	MetaInfo   []byte `bson:"metaInfo,omitempty"`
	SavePath   string `bson:"savePath"`
	TotalBytes int64  `bson:"totalBytes"`
	DoneBytes  int64  `bson:"doneBytes"`
	AddedAt    int64  `bson:"addedAt"`
	UpdatedAt  int64  `bson:"updatedAt"`
}

func NewRepository(client *mongo.Client, dbName, collectionName string) *Repository {
	return &Repository{collection: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "addedAt", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *Repository) Create(ctx context.Context, rec domain.TorrentRecord) error {
	_, err := r.collection.InsertOne(ctx, toDoc(rec))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
	}
	return err
}

// UpdateProgress refreshes the live fields of one record. $max on doneBytes
// keeps a stale flush from moving progress backwards.
func (r *Repository) UpdateProgress(ctx context.Context, id domain.TorrentID, u domain.ProgressUpdate) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": string(id)}, updateDoc(u, time.Now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id domain.TorrentID) (domain.TorrentRecord, error) {
	var doc torrentDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.TorrentRecord{}, domain.ErrNotFound
		}
		return domain.TorrentRecord{}, err
	}
	return fromDoc(doc), nil
}

// List returns every record ordered by insertion time. addedAt has second
// precision, so ties fall back to _id for a stable order.
func (r *Repository) List(ctx context.Context) ([]domain.TorrentRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "addedAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []torrentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func (r *Repository) Delete(ctx context.Context, id domain.TorrentID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDoc(rec domain.TorrentRecord) torrentDoc {
	return torrentDoc{
		ID:         string(rec.ID),
		Name:       rec.Name,
		State:      string(rec.State),
		Magnet:     rec.Magnet,
		MetaInfo:   rec.MetaInfo,
		SavePath:   rec.SavePath,
		TotalBytes: rec.TotalBytes,
		DoneBytes:  rec.DoneBytes,
		AddedAt:    rec.AddedAt.Unix(),
		UpdatedAt:  rec.UpdatedAt.Unix(),
	}
}

func fromDoc(doc torrentDoc) domain.TorrentRecord {
	return domain.TorrentRecord{
		ID:         domain.TorrentID(doc.ID),
		Name:       doc.Name,
		State:      domain.TorrentState(doc.State),
		Magnet:     doc.Magnet,
		MetaInfo:   doc.MetaInfo,
		SavePath:   doc.SavePath,
		TotalBytes: doc.TotalBytes,
		DoneBytes:  doc.DoneBytes,
		AddedAt:    timeFromUnix(doc.AddedAt),
		UpdatedAt:  timeFromUnix(doc.UpdatedAt),
	}
}

func fromDocs(docs []torrentDoc) []domain.TorrentRecord {
	records := make([]domain.TorrentRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDoc(doc))
	}
	return records
}

// updateDoc builds the UpdateOne document for a progress flush. Name and
// totalBytes are only written once known; an empty update never erases them.
func updateDoc(u domain.ProgressUpdate, now time.Time) bson.M {
	set := bson.M{
		"state":     string(u.State),
		"updatedAt": now.Unix(),
	}
	if u.Name != "" {
		set["name"] = u.Name
	}
	if u.TotalBytes > 0 {
		set["totalBytes"] = u.TotalBytes
	}
	return bson.M{
		"$set": set,
		"$max": bson.M{"doneBytes": u.DoneBytes},
	}
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
