package graphstore

// RelatedTo is the only relationship type in the curriculum graph.
const RelatedTo = "RELATED_TO"

// Statements issued by the topic graph builder. All values are bound as
// parameters; class namespaces use dynamic labels ($($label), Neo4j 5.26+),
// so no statement text is ever assembled at runtime.
const (
	StmtDeleteAll = "MATCH (n) DETACH DELETE n"

	StmtReturnNames = "MATCH (n) RETURN n.name AS name"

	// params: name
	StmtCreateTopic = "CREATE (:Topic {name: $name})"

	// params: from, to. One row per edge created.
	StmtLinkPair = "MATCH (n1) WHERE n1.name = $from " +
		"MATCH (n2) WHERE n2.name = $to " +
		"CREATE (n1)-[:RELATED_TO]->(n2) " +
		"RETURN n1.name AS from, n2.name AS to"

	// params: start, topic, label. One row per node created.
	StmtCreateSubTopic = "MATCH (t1) WHERE t1.name = $start " +
		"CREATE (t1)-[:RELATED_TO]->(t2:$($label) {name: $topic}) " +
		"RETURN t2.name AS name"

	// params: label, name, newName. One row per node renamed.
	StmtRenameNode = "MATCH (n:$($label)) WHERE n.name = $name " +
		"SET n.name = $newName " +
		"RETURN n.name AS name"

	StmtDuplicateNames = "MATCH (n) WITH n.name AS name, count(*) AS occurrences " +
		"WHERE occurrences > 1 " +
		"RETURN name, occurrences ORDER BY name"
)

// Statements lists the full catalogue.
func Statements() []string {
	return []string{
		StmtDeleteAll,
		StmtReturnNames,
		StmtCreateTopic,
		StmtLinkPair,
		StmtCreateSubTopic,
		StmtRenameNode,
		StmtDuplicateNames,
	}
}
