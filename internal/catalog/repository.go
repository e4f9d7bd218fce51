package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Repository loads card definitions from Postgres. The cards table is the
// one maintained by the import tooling: card_number, name, card_type, color,
// cost, power, counter, life, attribute, keywords and scripts (YAML text).
//
// The repository reads the whole table once at startup into a MemoryCatalog;
// the engine only ever consumes the immutable in-memory form.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a repository on an existing connection pool.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{pool: pool, logger: logger}
}

const loadQuery = `
SELECT card_number, name, card_type, color,
       COALESCE(cost, 0), COALESCE(power, 0), COALESCE(counter, 0),
       COALESCE(life, 0), COALESCE(attribute, ''),
       COALESCE(keywords, ''), COALESCE(scripts, '')
FROM cards`

// LoadAll reads every card definition from the database.
func (r *Repository) LoadAll(ctx context.Context) (*MemoryCatalog, error) {
	rows, err := r.pool.Query(ctx, loadQuery)
	if err != nil {
		return nil, fmt.Errorf("catalog: query cards: %w", err)
	}
	defer rows.Close()

	var defs []CardDefinition
	for rows.Next() {
		var (
			d            CardDefinition
			keywordsText string
			scriptsText  string
		)
		if err := rows.Scan(&d.CardNumber, &d.Name, &d.Type, &d.Color,
			&d.Cost, &d.Power, &d.Counter, &d.Life, &d.Attribute,
			&keywordsText, &scriptsText); err != nil {
			return nil, fmt.Errorf("catalog: scan card: %w", err)
		}
		if keywordsText != "" {
			if err := yaml.Unmarshal([]byte(keywordsText), &d.Keywords); err != nil {
				return nil, fmt.Errorf("catalog: card %s keywords: %w", d.CardNumber, err)
			}
		}
		if scriptsText != "" {
			if err := yaml.Unmarshal([]byte(scriptsText), &d.Scripts); err != nil {
				return nil, fmt.Errorf("catalog: card %s scripts: %w", d.CardNumber, err)
			}
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read cards: %w", err)
	}

	r.logger.Info("card catalog loaded from database", zap.Int("cards", len(defs)))
	return NewMemoryCatalog(defs)
}
