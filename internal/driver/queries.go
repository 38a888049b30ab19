package driver

const (
	CollectionExistsQuery = `
		MATCH (c:Collection {label: $label})
		RETURN c.label AS label
	`

	CreateCollectionQuery = `
		MERGE (c:Collection {label: $label})
		RETURN c.label AS label
	`

	CountCollectionQuery = `
		MATCH (:Collection {label: $label})-[:CONTAINS]->(s:Structure)
		RETURN count(s) AS count
	`

	CountStructuresQuery = `
		MATCH (s:Structure)
		RETURN count(s) AS count
	`

	FindBySourceQuery = `
		MATCH (s:Structure {source_database: $database, source_id: $id})
		RETURN s.uuid AS uuid,
			s.source_database AS source_database,
			s.source_id AS source_id,
			s.source_version AS source_version,
			s.formula AS formula,
			s.chemical_system AS chemical_system,
			s.num_sites AS num_sites,
			s.partial_occupancies AS partial_occupancies,
			s.duplicates AS duplicates,
			s.geometry AS geometry
		LIMIT 1
	`

	SetDuplicatesQuery = `
		MATCH (s:Structure {uuid: $uuid})
		SET s.duplicates = $duplicates
	`

	ClearDuplicatesQuery = `
		MATCH (s:Structure {uuid: $uuid})
		REMOVE s.duplicates
	`

	AddToCollectionQuery = `
		MATCH (c:Collection {label: $label})
		MATCH (s:Structure {uuid: $uuid})
		MERGE (c)-[:CONTAINS]->(s)
	`

	RemoveFromCollectionQuery = `
		MATCH (:Collection {label: $label})-[r:CONTAINS]->(:Structure {uuid: $uuid})
		DELETE r
	`
)
