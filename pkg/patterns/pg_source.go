package patterns

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads the rule set once at startup from a pattern_rules
// table, for deployments that manage rules centrally. Expected schema:
//
//	CREATE TABLE pattern_rules (
//	    id          TEXT NOT NULL,
//	    category    TEXT NOT NULL,
//	    subcategory TEXT NOT NULL DEFAULT '',
//	    weight      DOUBLE PRECISION NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    phrases     TEXT[],
//	    regex       TEXT,
//	    prox_tokens TEXT[],
//	    prox_window INT,
//	    position    INT NOT NULL
//	);
//
// Row order (position) is the rule order within a category; validation is
// Load's job, exactly as for the other sources.
type PostgresSource struct {
	Pool *pgxpool.Pool
	Ctx  context.Context
}

func (s PostgresSource) Rules() ([]RuleSpec, error) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT id, category, subcategory, weight, description,
		       phrases, regex, prox_tokens, prox_window
		FROM pattern_rules
		ORDER BY category, position, id`)
	if err != nil {
		return nil, fmt.Errorf("querying pattern_rules: %w", err)
	}
	defer rows.Close()

	var specs []RuleSpec
	for rows.Next() {
		var (
			spec       RuleSpec
			phrases    []string
			regex      *string
			proxTokens []string
			proxWindow *int
		)
		if err := rows.Scan(
			&spec.ID, &spec.Category, &spec.Subcategory, &spec.Weight,
			&spec.Description, &phrases, &regex, &proxTokens, &proxWindow,
		); err != nil {
			return nil, fmt.Errorf("scanning pattern_rules row: %w", err)
		}
		spec.Match.Phrases = phrases
		if regex != nil {
			spec.Match.Regex = *regex
		}
		if len(proxTokens) > 0 {
			window := 0
			if proxWindow != nil {
				window = *proxWindow
			}
			spec.Match.Proximity = &ProximityDecl{Tokens: proxTokens, Window: window}
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading pattern_rules rows: %w", err)
	}
	return specs, nil
}

// Connect opens a pgx pool for a PostgresSource. Callers own the pool and
// should close it once the knowledge base is loaded; the base itself keeps no
// connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing rule database DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting rule database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging rule database: %w", err)
	}
	return pool, nil
}
