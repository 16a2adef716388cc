// Package qdrantdb implements the remote vector tier of the memory store on
// top of Qdrant's native gRPC client.
package qdrantdb

import (
	"context"
	"sort"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storeerrors "github.com/memora/memora/internal/errors"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/store"
)

// scrollPageSize bounds one scroll page; scans follow the cursor until the
// backend reports no next page.
const scrollPageSize = 1000

// DB is the Qdrant-backed driver.
type DB struct {
	client *qdrant.Client
}

// NewDB creates a Qdrant client from the profile. The connection is lazy;
// an unreachable backend surfaces on the first operation, not here.
func NewDB(p *profile.Profile) (*DB, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   p.QdrantHost,
		Port:                   p.QdrantPort,
		APIKey:                 p.QdrantAPIKey,
		UseTLS:                 p.QdrantUseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, storeerrors.BackendOperationFailed("failed to create qdrant client", err)
	}
	return &DB{client: client}, nil
}

// classify maps a backend error into the store taxonomy. Connection-level
// failures (gRPC Unavailable) become BACKEND_UNAVAILABLE and trigger the
// proxy's one-time switchover; everything else is BACKEND_OPERATION_FAILED.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.Unavailable {
		return storeerrors.BackendUnavailable(msg, err)
	}
	return storeerrors.BackendOperationFailed(msg, err)
}

// CreateCollection ensures the collection exists with its named vector slots
// (cosine distance) and provisions the payload indexes that keep list and
// filter operations efficient.
func (d *DB) CreateCollection(ctx context.Context, schema *store.CollectionSchema) error {
	collections, err := d.client.ListCollections(ctx)
	if err != nil {
		return classify(err, "failed to list collections")
	}

	exists := false
	for _, name := range collections {
		if name == schema.Name {
			exists = true
			break
		}
	}
	if exists {
		return nil
	}

	paramsMap := make(map[string]*qdrant.VectorParams, len(schema.Slots))
	for _, slot := range schema.Slots {
		paramsMap[slot.Name] = &qdrant.VectorParams{
			Size:     slot.Size,
			Distance: qdrant.Distance_Cosine,
		}
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: schema.Name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_ParamsMap{
				ParamsMap: &qdrant.VectorParamsMap{Map: paramsMap},
			},
		},
	})
	if err != nil {
		return classify(err, "failed to create collection "+schema.Name)
	}

	indexes := []struct {
		field string
		kind  qdrant.FieldType
	}{
		{"type", qdrant.FieldType_FieldTypeKeyword},
		{"tags", qdrant.FieldType_FieldTypeKeyword},
		{"timestamp", qdrant.FieldType_FieldTypeInteger},
	}
	for _, idx := range indexes {
		fieldType := idx.kind
		if _, err := d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: schema.Name,
			FieldName:      idx.field,
			FieldType:      &fieldType,
		}); err != nil {
			return classify(err, "failed to create payload index on "+idx.field)
		}
	}

	return nil
}

// UpsertMemory writes the record as a point with its text vector in the
// "text" slot, waiting for the write to be acknowledged.
func (d *DB) UpsertMemory(ctx context.Context, memory *store.Memory) error {
	payload := map[string]*qdrant.Value{
		"content":   stringValue(memory.Content),
		"type":      stringValue(string(memory.Type)),
		"timestamp": integerValue(memory.Timestamp),
		"date":      stringValue(memory.Date),
		"tags":      stringListValue(memory.Tags),
	}
	if memory.ImageDetails != "" {
		payload["imageDetails"] = stringValue(memory.ImageDetails)
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: memory.ID}},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vectors{
				Vectors: &qdrant.NamedVectors{
					Vectors: map[string]*qdrant.Vector{
						"text": {Data: memory.TextVector},
					},
				},
			},
		},
		Payload: payload,
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: store.CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	return classify(err, "failed to upsert memory "+memory.ID)
}

// scrollFunc issues one scroll page against the backend.
type scrollFunc func(ctx context.Context, req *qdrant.ScrollPoints) (*qdrant.ScrollResponse, error)

// scrollAll follows the scroll cursor until the backend reports no next
// page, so scans see every matching point rather than the first page only.
func scrollAll(ctx context.Context, scroll scrollFunc, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error) {
	var points []*qdrant.RetrievedPoint
	for {
		resp, err := scroll(ctx, req)
		if err != nil {
			return nil, err
		}
		points = append(points, resp.GetResult()...)

		next := resp.GetNextPageOffset()
		if next == nil {
			return points, nil
		}
		req.Offset = next
	}
}

// ScanMemories scrolls all points matching the find condition, following the
// scroll cursor across pages. Qdrant's scroll has no server-side timestamp
// ordering for named-vector collections, so results are sorted client-side
// before truncation.
func (d *DB) ScanMemories(ctx context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	if find == nil {
		find = &store.FindMemory{}
	}

	pointsClient := d.client.GetPointsClient()
	scroll := func(ctx context.Context, req *qdrant.ScrollPoints) (*qdrant.ScrollResponse, error) {
		return pointsClient.Scroll(ctx, req)
	}
	points, err := scrollAll(ctx, scroll, &qdrant.ScrollPoints{
		CollectionName: store.CollectionName,
		Filter:         anyOfFilter(find.AnyOf),
		Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(err, "failed to scan memories")
	}

	memories := make([]*store.Memory, 0, len(points))
	for _, point := range points {
		memories = append(memories, payloadToMemory(pointIDToString(point.GetId()), point.GetPayload()))
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Timestamp > memories[j].Timestamp
	})

	if find.Limit > 0 && len(memories) > find.Limit {
		memories = memories[:find.Limit]
	}
	return memories, nil
}

// VectorSearch queries the "text" vector slot by cosine similarity.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.MemoryWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: store.CollectionName,
		Query:          qdrant.NewQuery(opts.Vector...),
		Using:          qdrant.PtrOf("text"),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(err, "failed to search memories")
	}

	results := make([]*store.MemoryWithScore, 0, len(points))
	for _, point := range points {
		results = append(results, &store.MemoryWithScore{
			Memory: payloadToMemory(pointIDToString(point.GetId()), point.GetPayload()),
			Score:  float64(point.GetScore()),
		})
	}
	return results, nil
}

// Close closes the underlying gRPC connection.
func (d *DB) Close() error {
	return d.client.Close()
}

// anyOfFilter renders the OR predicate set as a qdrant should-filter.
func anyOfFilter(preds []store.FieldPredicate) *qdrant.Filter {
	if len(preds) == 0 {
		return nil
	}
	should := make([]*qdrant.Condition, 0, len(preds))
	for _, p := range preds {
		should = append(should, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: p.Field,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: p.Value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Should: should}
}

func payloadToMemory(id string, payload map[string]*qdrant.Value) *store.Memory {
	return &store.Memory{
		ID:           id,
		Type:         store.MemoryType(stringFromPayload(payload, "type")),
		Content:      stringFromPayload(payload, "content"),
		Timestamp:    integerFromPayload(payload, "timestamp"),
		Date:         stringFromPayload(payload, "date"),
		Tags:         stringSliceFromPayload(payload, "tags"),
		ImageDetails: stringFromPayload(payload, "imageDetails"),
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func integerValue(i int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}}
}

func stringListValue(slice []string) *qdrant.Value {
	values := make([]*qdrant.Value, len(slice))
	for i, s := range slice {
		values[i] = stringValue(s)
	}
	return &qdrant.Value{Kind: &qdrant.Value_ListValue{
		ListValue: &qdrant.ListValue{Values: values},
	}}
}

func stringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if value, ok := payload[key]; ok {
		return value.GetStringValue()
	}
	return ""
}

func integerFromPayload(payload map[string]*qdrant.Value, key string) int64 {
	if value, ok := payload[key]; ok {
		return value.GetIntegerValue()
	}
	return 0
}

func stringSliceFromPayload(payload map[string]*qdrant.Value, key string) []string {
	value, ok := payload[key]
	if !ok {
		return nil
	}
	listValue := value.GetListValue()
	if listValue == nil {
		return nil
	}
	values := listValue.GetValues()
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = v.GetStringValue()
	}
	return result
}

func pointIDToString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	return id.GetUuid()
}

// Ensure DB implements store.Driver.
var _ store.Driver = (*DB)(nil)
