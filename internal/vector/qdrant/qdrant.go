package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/modgraph/internal/observability"
	"github.com/efebarandurmaz/modgraph/internal/vector"
)

const (
	payloadProject = "project"
	payloadModule  = "module"
)

// QdrantRepository implements vector.Repository using Qdrant.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewQdrant creates a Qdrant-backed repository and makes sure the collection
// exists with the profile dimensions.
func NewQdrant(ctx context.Context, host string, port int, collection string) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	r := &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}
	if err := r.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *QdrantRepository) ensureCollection(ctx context.Context) error {
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("qdrant collection %s: %w", r.collection, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}
	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     vector.Dimensions,
			Distance: pb.Distance_Cosine,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", r.collection, err)
	}
	return nil
}

func (r *QdrantRepository) Upsert(ctx context.Context, docs []vector.Document) error {
	ctx, span := observability.StartStoreSpan(ctx, "qdrant", "upsert")
	defer span.End()

	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: payload(d),
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (r *QdrantRepository) Search(ctx context.Context, project string, vec []float32, topK int) ([]vector.SearchResult, error) {
	ctx, span := observability.StartStoreSpan(ctx, "qdrant", "search")
	defer span.End()

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(topK),
		Filter:         projectFilter(project),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		results[i] = fromScored(pt)
	}
	return results, nil
}

func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

func payload(d vector.Document) map[string]*pb.Value {
	p := map[string]*pb.Value{
		payloadProject: {Kind: &pb.Value_StringValue{StringValue: d.Project}},
		payloadModule:  {Kind: &pb.Value_StringValue{StringValue: d.Module}},
	}
	for k, v := range d.Metadata {
		p[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return p
}

func projectFilter(project string) *pb.Filter {
	return &pb.Filter{Must: []*pb.Condition{{
		ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
			Key:   payloadProject,
			Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: project}},
		}},
	}}}
}

func fromScored(pt *pb.ScoredPoint) vector.SearchResult {
	res := vector.SearchResult{
		ID:       pt.GetId().GetUuid(),
		Score:    pt.GetScore(),
		Metadata: make(map[string]string),
	}
	for k, v := range pt.GetPayload() {
		switch k {
		case payloadModule:
			res.Module = v.GetStringValue()
		case payloadProject:
		default:
			res.Metadata[k] = v.GetStringValue()
		}
	}
	return res
}

var _ vector.Repository = (*QdrantRepository)(nil)
