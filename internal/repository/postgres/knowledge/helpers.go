package knowledge

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain/repositories"
)

// queryIDs runs a single-column query and collects the ids
func queryIDs(ctx context.Context, executor repositories.DBTX, query string, args ...any) ([]string, error) {
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}

	return ids, nil
}

// replaceSet rewrites the (owner, member) rows of a join table so the
// owner's members are exactly ids.
func replaceSet(ctx context.Context, executor repositories.DBTX, table, ownerCol, memberCol, ownerID string, ids []string) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, ownerCol)
	if _, err := executor.Exec(ctx, del, ownerID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(ids) == 0 {
		return nil
	}

	ins := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		SELECT $1, m::uuid FROM unnest($2::text[]) AS m
		ON CONFLICT DO NOTHING
	`, table, ownerCol, memberCol)
	if _, err := executor.Exec(ctx, ins, ownerID, ids); err != nil {
		return fmt.Errorf("fill %s: %w", table, err)
	}
	return nil
}

// idArray is an aggregated id column that reads as an empty slice when the
// owner has no rows.
func idArray(table, idCol, ownerCol, ownerRef string) string {
	return fmt.Sprintf(
		`COALESCE((SELECT array_agg(x.%s::text ORDER BY x.%s) FROM %s x WHERE x.%s = %s), '{}')`,
		idCol, idCol, table, ownerCol, ownerRef,
	)
}
