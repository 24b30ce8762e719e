package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/graph"
	"github.com/efebarandurmaz/modgraph/internal/observability"
)

const (
	deleteProjectQuery = "MATCH (m:Module {project: $project}) DETACH DELETE m"

	mergeModulesQuery = "UNWIND $modules AS row " +
		"MERGE (m:Module {project: $project, name: row.name}) " +
		"SET m.afferent = row.afferent, m.efferent = row.efferent, " +
		"m.instability = row.instability, m.abstraction = row.abstraction, m.distance = row.distance"

	mergeEdgesQuery = "UNWIND $edges AS row " +
		"MATCH (a:Module {project: $project, name: row.source}) " +
		"MATCH (b:Module {project: $project, name: row.target}) " +
		"MERGE (a)-[d:DEPENDS_ON {kind: row.kind}]->(b) " +
		"SET d.strength = row.strength, d.file_path = row.file_path, d.line = row.line"

	loadRecordsQuery = "MATCH (a:Module {project: $project})-[d:DEPENDS_ON]->(b:Module {project: $project}) " +
		"RETURN a.name AS source, b.name AS target, d.kind AS kind, d.strength AS strength, " +
		"d.file_path AS file_path, d.line AS line"

	countModulesQuery = "MATCH (m:Module {project: $project}) RETURN count(m) AS modules"

	dependentsQuery = "MATCH (a:Module {project: $project})-[:DEPENDS_ON]->(:Module {project: $project, name: $name}) " +
		"RETURN DISTINCT a.name AS name ORDER BY name"
)

// Neo4jRepository implements graph.Repository using Neo4j. Modules are
// (:Module {project, name}) nodes carrying their metrics; each edge is a
// DEPENDS_ON relationship keyed by its kind.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) SaveGraph(ctx context.Context, project string, g *depgraph.Graph) error {
	ctx, span := observability.StartStoreSpan(ctx, "neo4j", "save_graph")
	defer span.End()
	observability.RecordGraphSize(span, g.Metadata.TotalNodes, g.Metadata.TotalEdges)

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"project": project}
		if _, err := tx.Run(ctx, deleteProjectQuery, params); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, mergeModulesQuery, map[string]any{
			"project": project,
			"modules": moduleParams(graph.ModuleRows(g)),
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, mergeEdgesQuery, map[string]any{
			"project": project,
			"edges":   edgeParams(g.Edges),
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("store graph %s: %w", project, err)
	}
	return nil
}

func (r *Neo4jRepository) LoadRecords(ctx context.Context, project string) ([]depgraph.DependencyRecord, error) {
	ctx, span := observability.StartStoreSpan(ctx, "neo4j", "load_records")
	defer span.End()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"project": project}
		count, err := tx.Run(ctx, countModulesQuery, params)
		if err != nil {
			return nil, err
		}
		rec, err := count.Single(ctx)
		if err != nil {
			return nil, err
		}
		if n, _ := rec.Get("modules"); n == int64(0) {
			return nil, graph.ErrProjectNotFound
		}

		rows, err := tx.Run(ctx, loadRecordsQuery, params)
		if err != nil {
			return nil, err
		}
		var recs []depgraph.DependencyRecord
		for rows.Next(ctx) {
			recs = append(recs, decodeRecord(rows.Record()))
		}
		return recs, rows.Err()
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("load graph %s: %w", project, err)
	}
	recs := result.([]depgraph.DependencyRecord)
	graph.SortRecords(recs)
	return recs, nil
}

func (r *Neo4jRepository) QueryDependents(ctx context.Context, project, module string) ([]string, error) {
	ctx, span := observability.StartStoreSpan(ctx, "neo4j", "query_dependents")
	defer span.End()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rows, err := tx.Run(ctx, dependentsQuery, map[string]any{"project": project, "name": module})
		if err != nil {
			return nil, err
		}
		var names []string
		for rows.Next(ctx) {
			n, _ := rows.Record().Get("name")
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		return names, rows.Err()
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("query dependents of %s: %w", module, err)
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func moduleParams(rows []graph.ModuleRow) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, m := range rows {
		out[i] = map[string]any{
			"name":        m.Name,
			"afferent":    int64(m.Afferent),
			"efferent":    int64(m.Efferent),
			"instability": m.Instability,
			"abstraction": m.Abstraction,
			"distance":    m.Distance,
		}
	}
	return out
}

func edgeParams(edges []depgraph.DependencyRecord) []map[string]any {
	out := make([]map[string]any, len(edges))
	for i, e := range edges {
		out[i] = map[string]any{
			"source":    e.SourceModule,
			"target":    e.TargetModule,
			"kind":      string(e.Kind),
			"strength":  e.Strength,
			"file_path": e.FilePath,
			"line":      int64(e.Line),
		}
	}
	return out
}

// decodeRecord maps one loadRecordsQuery row. Missing or null properties
// leave the zero value.
func decodeRecord(rec *neo4j.Record) depgraph.DependencyRecord {
	var out depgraph.DependencyRecord
	if v, ok := rec.Get("source"); ok {
		out.SourceModule, _ = v.(string)
	}
	if v, ok := rec.Get("target"); ok {
		out.TargetModule, _ = v.(string)
	}
	if v, ok := rec.Get("kind"); ok {
		s, _ := v.(string)
		out.Kind = depgraph.DependencyKind(s)
	}
	if v, ok := rec.Get("strength"); ok {
		out.Strength, _ = v.(float64)
	}
	if v, ok := rec.Get("file_path"); ok {
		out.FilePath, _ = v.(string)
	}
	if v, ok := rec.Get("line"); ok {
		n, _ := v.(int64)
		out.Line = int(n)
	}
	return out
}

var _ graph.Repository = (*Neo4jRepository)(nil)
