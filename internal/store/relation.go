package store

import "database/sql"

// Relation type names, grounded on adbb/mapper.py's anime_relation_map
// and group_relation_map (12 entries each).
const (
	RelationSequel        = "sequel"
	RelationPrequel       = "prequel"
	RelationSameSetting   = "same setting"
	RelationAlternative   = "alternative setting"
	RelationAltVersion    = "alternative version"
	RelationMusicVideo    = "music video"
	RelationCharacter     = "character"
	RelationSideStory     = "side story"
	RelationParentStory   = "parent story"
	RelationSummary       = "summary"
	RelationFullStory     = "full story"
	RelationOther         = "other"
)

// UpsertAnimeRelation records an edge in the anime relation graph.
func (s *Store) UpsertAnimeRelation(aid, relatedAID int, relationType string) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO anime_relation (aid, related_aid, relation_type) VALUES (?,?,?)
			ON CONFLICT(aid, related_aid) DO UPDATE SET relation_type=excluded.relation_type
		`, aid, relatedAID, relationType)
		return err
	})
}

// AnimeRelations returns every (related_aid, relation_type) edge for aid.
func (s *Store) AnimeRelations(aid int) (map[int]string, error) {
	rows, err := s.db.Query(`SELECT related_aid, relation_type FROM anime_relation WHERE aid = ?`, aid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]string{}
	for rows.Next() {
		var relAID int
		var relType string
		if err := rows.Scan(&relAID, &relType); err != nil {
			return nil, err
		}
		out[relAID] = relType
	}
	return out, rows.Err()
}

// UpsertGroupRelation records an edge in the group relation graph.
func (s *Store) UpsertGroupRelation(gid, relatedGID int, relationType string) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO group_relation (gid, related_gid, relation_type) VALUES (?,?,?)
			ON CONFLICT(gid, related_gid) DO UPDATE SET relation_type=excluded.relation_type
		`, gid, relatedGID, relationType)
		return err
	})
}
