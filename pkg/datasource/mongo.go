package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to the database in DATA_NAME and the collection in DATA_TABLE.
func OpenMongo(ctx context.Context, cfg config.DataSource) (DocumentSource, error) {
	if cfg.Name == "" || cfg.Table == "" {
		return nil, fmt.Errorf("%w: DATA_NAME (database) and DATA_TABLE (collection) are required for MongoDB", ErrMissingSetting)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(MongoURI(cfg)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return &mongoSource{
		client:     client,
		collection: client.Database(cfg.Name).Collection(cfg.Table),
	}, nil
}

func (s *mongoSource) Sample(ctx context.Context, limit int) ([]models.Row, error) {
	findOptions := options.Find()
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	var documents []bson.M

	err = cursor.All(ctx, &documents)
	if err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}

	rows := make([]models.Row, 0, len(documents))
	for _, document := range documents {
		rows = append(rows, documentRow(document))
	}

	return rows, nil
}

func (s *mongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func documentRow(document bson.M) models.Row {
	row := make(models.Row, len(document))
	for key, value := range document {
		row[key] = documentValue(value)
	}

	return row
}

// documentValue turns BSON specific values into plain Go values. ObjectIDs
// become their hex string.
func documentValue(value any) any {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Decimal128:
		return v.String()
	case bson.M:
		return map[string]any(documentRow(v))
	case bson.D:
		return map[string]any(documentRow(v.Map()))
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = documentValue(item)
		}

		return out
	default:
		return v
	}
}
